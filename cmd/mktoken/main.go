// Command mktoken mints a signed API token for a user id, for operators
// and local development. The API itself only validates tokens.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/storelink/storelink-golang/internal/auth"
)

func main() {
	userID := flag.Int64("user", 0, "user id to mint a token for")
	flag.Parse()

	if *userID <= 0 {
		log.Fatal("provide a positive -user id")
	}

	_ = godotenv.Load()
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		log.Fatal("AUTH_JWT_SECRET is not set")
	}

	token, err := auth.GenerateToken([]byte(secret), *userID)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

// Command tokengen mints a signed bearer token for a user, for local
// testing and for operators onboarding service accounts.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"chat-gateway/auth"
)

func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HMAC signing secret (defaults to JWT_SECRET)")
	issuer := flag.String("issuer", "chat-gateway", "Token issuer")
	userID := flag.String("user", "", "User id (required)")
	username := flag.String("username", "", "Display name (defaults to the user id)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *secret == "" {
		log.Fatal("A signing secret is required: pass -secret or set JWT_SECRET")
	}
	if *userID == "" {
		log.Fatal("A user id is required: pass -user")
	}

	token, err := auth.GenerateToken(*secret, *issuer, *userID, *username, *ttl)
	if err != nil {
		log.Fatalf("Token generation failed: %v", err)
	}
	fmt.Println(token)
}

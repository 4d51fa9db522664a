// Command vapid generates a VAPID key pair for web push.
package main

import (
	"fmt"
	"os"

	"socialfeed/push"
)

func main() {
	publicKey, privateKey, err := push.GenerateKeys()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to generate VAPID keys:", err)
		os.Exit(1)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privateKey)
	fmt.Println("VAPID_SUBJECT=mailto:admin@example.com")
}

package main

import (
	"flag"
	"fmt"
	"log"

	"price-alert/internal/infrastructure/notify"
)

// vapidkeys 產生一組 VAPID 金鑰，輸出可直接放進 .env。
func main() {
	subject := flag.String("subject", "mailto:alerts@example.com", "VAPID subject (mailto: or https: URI)")
	flag.Parse()

	priv, pub, err := notify.GenerateVAPIDKeys()
	if err != nil {
		log.Fatalf("產生金鑰失敗: %v", err)
	}
	if _, err := notify.NewVAPIDKeys(priv, pub, *subject, 0); err != nil {
		log.Fatalf("金鑰驗證失敗: %v", err)
	}
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", pub)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", priv)
	fmt.Printf("VAPID_SUBJECT=%s\n", *subject)
}

// Command rvault-demo exercises the vault lifecycle end to end: init,
// open, write and read a file object, close. It is a smoke test, not a
// CLI front-end.
package main

import (
	"fmt"
	"log"
	"os"

	vcrypto "github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/vault"
)

func main() {
	dir, err := os.MkdirTemp("", "rvault-demo-*")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	cipher := vcrypto.ChaCha20Poly1305
	err = vault.Init(dir, vault.InitOptions{
		Passphrase: "correct horse battery staple",
		UIDHex:     "00112233445566778899aabbccddeeff",
		Cipher:     &cipher,
		NoAuth:     true,
	})
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	fmt.Println("vault initialized in", dir)

	v, err := vault.Open(dir, vault.OpenOptions{Passphrase: "correct horse battery staple"})
	if err != nil {
		log.Fatalf("open failed: %v", err)
	}

	fh, err := v.OpenFile("notes.txt")
	if err != nil {
		log.Fatalf("open file failed: %v", err)
	}
	if err := fh.WriteAll([]byte("the vault is open")); err != nil {
		log.Fatalf("write failed: %v", err)
	}
	plaintext, err := fh.ReadAll()
	if err != nil {
		log.Fatalf("read failed: %v", err)
	}
	fmt.Println("decrypted payload:", string(plaintext))

	if err := fh.Close(); err != nil {
		log.Fatalf("file close failed: %v", err)
	}
	if err := v.Close(); err != nil {
		log.Fatalf("vault close failed: %v", err)
	}

	_, err = vault.Open(dir, vault.OpenOptions{Passphrase: "wrong passphrase"})
	if err == nil {
		log.Fatal("expected wrong-passphrase open to fail")
	}
	fmt.Println("wrong passphrase correctly rejected:", err)
}

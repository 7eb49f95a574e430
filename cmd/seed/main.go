// Package main provides a tool to seed the record store with sample vault
// data, so backups and restores can be tried against realistic content.
//
// Usage:
//
//	go run ./cmd/seed                      # 25 passwords plus secure items
//	go run ./cmd/seed -data-path /tmp/lb -- -count 200 -images
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/lockboxapp/lockbox-server/internal/config"
	"github.com/lockboxapp/lockbox-server/internal/domain"
	"github.com/lockboxapp/lockbox-server/internal/logger"
	"github.com/lockboxapp/lockbox-server/internal/store/sqlite"
)

var sites = []string{"github.com", "mail.example.com", "bank.example.org", "shop.example.net", "news.example.com", "cloud.example.io"}

func main() {
	cfg, rest, err := config.Load("seed", os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	count := fs.Int("count", 25, "Number of password entries to create")
	images := fs.Bool("images", false, "Attach random .enc image blobs to documents")
	_ = fs.Parse(rest)

	if err := os.MkdirAll(cfg.Data.BasePath, 0o700); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	fmt.Printf("Opening record store at: %s\n", cfg.Data.DatabasePath())
	s, err := sqlite.Open(cfg.Data.DatabasePath(), logger.Discard().Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rng := mrand.New(mrand.NewPCG(uint64(time.Now().UnixNano()), 0))
	base := time.Now().Add(-90 * 24 * time.Hour)

	created := 0
	for n := range *count {
		site := sites[n%len(sites)]
		at := base.Add(time.Duration(rng.IntN(90*24)) * time.Hour)
		entry := &domain.PasswordEntry{
			Title:      fmt.Sprintf("%s #%d", site, n+1),
			Username:   fmt.Sprintf("user%d@example.com", n+1),
			Password:   randomPassword(rng, 16),
			Website:    site,
			Notes:      "seeded entry",
			IsFavorite: n%7 == 0,
			SortOrder:  n,
			CreatedAt:  at,
			UpdatedAt:  at,
		}
		if _, err := s.CreatePassword(ctx, entry); err != nil {
			log.Printf("Failed to create password %q: %v", entry.Title, err)
			continue
		}
		created++
	}
	fmt.Printf("Created %d passwords\n", created)

	items := []domain.SecureItem{
		{ItemType: domain.ItemTypeTOTP, Title: "GitHub 2FA", ItemData: `{"secret":"JBSWY3DPEHPK3PXP","issuer":"GitHub"}`},
		{ItemType: domain.ItemTypeBankCard, Title: "Visa", ItemData: `{"number":"4111111111111111","expiry":"12/29"}`},
		{ItemType: domain.ItemTypeDocument, Title: "Passport", ItemData: `{"number":"X1234567"}`},
		{ItemType: domain.ItemTypeNote, Title: "Wi-Fi", Notes: "guest network: lockbox-guest"},
	}
	for i := range items {
		item := &items[i]
		item.CreatedAt = base
		item.UpdatedAt = base
		if *images && item.ItemType == domain.ItemTypeDocument {
			blob, err := writeBlob(cfg.Data.ImagePath())
			if err != nil {
				log.Fatalf("Failed to write image blob: %v", err)
			}
			item.ImagePaths = []string{blob}
		}
		if _, err := s.CreateSecureItem(ctx, item); err != nil {
			log.Printf("Failed to create secure item %q: %v", item.Title, err)
		}
	}
	fmt.Printf("Created %d secure items\n", len(items))

	for i := range 10 {
		g := &domain.GeneratedPassword{
			Password:  randomPassword(rng, 12+i),
			Kind:      "random",
			Length:    12 + i,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.AddGeneratorHistory(ctx, g); err != nil {
			log.Printf("Failed to add generator history: %v", err)
		}
	}
	fmt.Println("Created 10 generator history entries")
}

const alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#%"

func randomPassword(rng *mrand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return string(b)
}

// writeBlob stores random bytes as an opaque .enc image and returns its name.
func writeBlob(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	data := make([]byte, 4096)
	if _, err := rand.Read(data); err != nil {
		return "", err
	}
	name := fmt.Sprintf("img_%d.enc", time.Now().UnixNano())
	return name, os.WriteFile(filepath.Join(dir, name), data, 0o600)
}

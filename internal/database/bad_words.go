package database

import (
	"bufio"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const badWordsURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"

// SeedBadWords fetches and seeds the bad words list used to screen authored
// game titles. Skipped when the table is already populated.
func (db *DB) SeedBadWords() error {
	// Check if bad words already exist
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM bad_words").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check bad words count: %w", err)
	}

	if count > 0 {
		log.Printf("Bad words filter already populated with %d words", count)
		return nil
	}

	log.Println("Downloading bad words list...")

	// Fetch the bad words list
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(badWordsURL)
	if err != nil {
		return fmt.Errorf("failed to download bad words list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code from bad words URL: %d", resp.StatusCode)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" {
			continue
		}
		if _, err := tx.Exec("INSERT INTO bad_words (word) VALUES (?)", word); err != nil {
			return fmt.Errorf("failed to insert bad word: %w", err)
		}
		inserted++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read bad words list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bad words: %w", err)
	}

	log.Printf("Seeded %d bad words", inserted)
	return nil
}

// ContainsBadWord reports whether any word in the given text is on the bad
// words list.
func (db *DB) ContainsBadWord(text string) (bool, error) {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM bad_words WHERE word = ?", word).Scan(&count)
		if err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Package common holds helpers shared by the command line entry points
package common

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const userAgent = "channel-analytics/1.0"

// GenerateRunLabel generates a label based on the current timestamp, formatted
// as "YYYYMMDDHHMMSS".
func GenerateRunLabel(now time.Time) string {
	return now.Format("20060102150405")
}

// DownloadChannelsFile downloads a channel list from url into a temporary
// file and returns its path.
func DownloadChannelsFile(ctx context.Context, url string) (string, error) {
	log.Info().Str("url", url).Msg("Downloading channel list")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	filename := filepath.Join(os.TempDir(), fmt.Sprintf("channels_%s.txt", GenerateRunLabel(time.Now())))
	out, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write to file: %w", err)
	}

	log.Info().Str("file", filename).Msg("Channel list downloaded successfully")
	return filename, nil
}

// ReadChannelIDsFromFile reads channel IDs from a file, one per line. Empty
// lines and lines starting with '#' are ignored, and duplicates are dropped.
func ReadChannelIDsFromFile(filename string) ([]string, error) {
	log.Debug().Str("filename", filename).Msg("Reading channel IDs from file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	ids := NormalizeChannelIDs(strings.Split(string(data), "\n"))
	log.Debug().Int("channel_count", len(ids)).Msg("Channel IDs read from file")
	return ids, nil
}

// NormalizeChannelIDs trims ids, drops blanks and comments, and removes
// duplicates while keeping first-seen order.
func NormalizeChannelIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || strings.HasPrefix(id, "#") || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

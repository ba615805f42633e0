// package formatter provides functions to export stored mappings to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ellievs/covermatch/internal/models"
	"github.com/ellievs/covermatch/internal/shared"
)

// ExportToCSV converts mappings to CSV with columns: SongID, TrackID, AlbumID, Confidence, Override, Market, ExternalURL
func ExportToCSV(mappings []*models.Mapping) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"SongID", "TrackID", "AlbumID", "Confidence", "Override", "Market", "ExternalURL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, mapping := range mappings {
		record := []string{
			mapping.SongID,
			mapping.TrackID,
			mapping.AlbumID,
			strconv.Itoa(mapping.Confidence),
			strconv.FormatBool(mapping.ManualOverride),
			mapping.Market,
			mapping.ExternalURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts mappings to a Markdown table under the given title.
func ExportToMarkdown(mappings []*models.Mapping, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Mappings"
	}

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Count**: %d\n\n", len(mappings)))

	buf.WriteString("| Song | Track | Confidence | Override | Market |\n")
	buf.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, mapping := range mappings {
		buf.WriteString(fmt.Sprintf("| %s | [%s](%s) | %d | %t | %s |\n",
			mapping.SongID, mapping.TrackID, mapping.ExternalURL,
			mapping.Confidence, mapping.ManualOverride, mapping.Market))
	}

	return buf.Bytes(), nil
}

// ExportToText converts mappings to plain text, one line per mapping.
func ExportToText(mappings []*models.Mapping) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Mappings: %d\n\n", len(mappings)))

	for i, mapping := range mappings {
		buf.WriteString(fmt.Sprintf("%d. %s -> %s (confidence %d)\n",
			i+1, mapping.SongID, mapping.TrackID, mapping.Confidence))
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToJSON generates a pretty-printed JSON representation of the mappings.
func ToJSON(mappings []*models.Mapping) ([]byte, error) {
	return shared.MarshalJSON(mappings, true)
}

// WriteExport writes mappings to a file in the requested format.
//
// Supported formats: csv, markdown, text, json. The path defaults to
// mappings.{ext} in the working directory.
func WriteExport(mappings []*models.Mapping, format, path string) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)

	switch format {
	case "csv":
		data, err = ExportToCSV(mappings)
		ext = "csv"
	case "markdown", "md":
		data, err = ExportToMarkdown(mappings, "")
		ext = "md"
	case "text", "txt":
		data, err = ExportToText(mappings)
		ext = "txt"
	case "json", "":
		data, err = ToJSON(mappings)
		ext = "json"
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s export: %w", format, err)
	}

	if path == "" {
		path = "mappings." + ext
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

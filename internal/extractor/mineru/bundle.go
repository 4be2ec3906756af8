package mineru

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"medparse/internal/domain"
)

const (
	contentListSuffix   = "content_list_v2.json"
	legacyListingSuffix = "content_list.json"
)

// resolveEntry produces the flattened text for one terminal-done entry.
// Resolution order: inline markdown, inline content items, downloadable
// bundle.
func (c *Client) resolveEntry(ctx context.Context, fileName string, entry *batchEntry) (string, error) {
	if entry.Markdown != "" {
		return entry.Markdown, nil
	}

	if len(entry.ContentList) > 0 {
		var parts []string
		for _, item := range entry.ContentList {
			if v := item.value(); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, "\n"), nil
	}

	if entry.FullZipURL == "" {
		return "", &domain.BundleFormatError{FileName: fileName, Reason: "entry carries neither inline content nor a bundle URL"}
	}

	data, err := c.fetchBundle(ctx, entry.FullZipURL)
	if err != nil {
		return "", err
	}
	return flattenBundle(fileName, data)
}

// fetchBundle downloads the result archive. Bundle URLs are presigned, so
// the request carries no Authorization header.
func (c *Client) fetchBundle(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating bundle request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bundle download failed (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	return data, nil
}

// flattenBundle decodes a result archive into flattened text. Precedence,
// first match wins:
//
//  1. the versioned structured content listing (*content_list_v2.json)
//  2. the legacy content listing (*content_list.json)
//  3. any markdown file, UTF-8 with invalid sequences replaced
//  4. the first file in the archive, best effort
//
// An empty archive is a BundleFormatError. A content listing that fails
// to parse falls through to the markdown fallback instead of failing the
// document; the listing is preferred only because it keeps the header and
// footer text classes that the markdown rendering drops.
func flattenBundle(fileName string, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &domain.BundleFormatError{FileName: fileName, Reason: fmt.Sprintf("not a zip archive: %v", err)}
	}
	if len(zr.File) == 0 {
		return "", &domain.BundleFormatError{FileName: fileName, Reason: "archive is empty"}
	}

	if f := findBySuffix(zr, contentListSuffix); f != nil {
		if text, ok := flattenListingFile(f); ok {
			return text, nil
		}
	}
	if f := findLegacyListing(zr); f != nil {
		if text, ok := flattenListingFile(f); ok {
			return text, nil
		}
	}

	if f := findBySuffix(zr, ".md"); f != nil {
		raw, err := readArchiveFile(f)
		if err != nil {
			return "", &domain.BundleFormatError{FileName: fileName, Reason: fmt.Sprintf("reading %s: %v", f.Name, err)}
		}
		return strings.ToValidUTF8(string(raw), "�"), nil
	}

	raw, err := readArchiveFile(zr.File[0])
	if err != nil {
		return "", &domain.BundleFormatError{FileName: fileName, Reason: fmt.Sprintf("reading %s: %v", zr.File[0].Name, err)}
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

func findBySuffix(zr *zip.Reader, suffix string) *zip.File {
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, suffix) {
			return f
		}
	}
	return nil
}

func findLegacyListing(zr *zip.Reader) *zip.File {
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, legacyListingSuffix) && !strings.HasSuffix(f.Name, contentListSuffix) {
			return f
		}
	}
	return nil
}

func flattenListingFile(f *zip.File) (string, bool) {
	raw, err := readArchiveFile(f)
	if err != nil {
		return "", false
	}
	text, err := flattenContentList(raw)
	if err != nil {
		return "", false
	}
	return text, true
}

func readArchiveFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

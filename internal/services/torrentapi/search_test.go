package torrentapi

import "testing"

func TestHashFromMagnet(t *testing.T) {
	magnet := "magnet:?xt=urn:btih:5048ac7b66712696b0c2d06b3e14066a&dn=Show.S01E02.720p&tr=udp%3A%2F%2Ftracker.example%3A6969"
	if hash := HashFromMagnet(magnet); hash != "5048ac7b66712696b0c2d06b3e14066a" {
		t.Errorf("HashFromMagnet = %q", hash)
	}

	if hash := HashFromMagnet("magnet:?dn=NoHash"); hash != "" {
		t.Errorf("Expected empty hash for magnet without btih URN, got %q", hash)
	}

	if hash := HashFromMagnet("://not a url"); hash != "" {
		t.Errorf("Expected empty hash for unparseable URI, got %q", hash)
	}
}

func TestConvertResults(t *testing.T) {
	client := &Client{}

	items := []apiResult{
		{
			Title:    "Show.S01E02.720p.WEB",
			Download: "magnet:?xt=urn:btih:abc123&dn=Show.S01E02.720p.WEB",
		},
		{
			// no title from the provider; fall back to the magnet display name
			Download: "magnet:?xt=urn:btih:def456&dn=Other.Show.S02E01",
		},
	}
	items[0].EpisodeInfo.TVDB = "361753"

	results := client.convertResults(items)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	if results[0].Title != "Show.S01E02.720p.WEB" {
		t.Errorf("Title mismatch: %q", results[0].Title)
	}
	if results[0].Hash != "abc123" {
		t.Errorf("Hash mismatch: %q", results[0].Hash)
	}
	if results[0].TVDBID != 361753 {
		t.Errorf("TVDB ID mismatch: %d", results[0].TVDBID)
	}

	if results[1].Title != "Other.Show.S02E01" {
		t.Errorf("Expected display-name fallback title, got %q", results[1].Title)
	}
	if results[1].TVDBID != 0 {
		t.Errorf("Expected zero TVDB ID, got %d", results[1].TVDBID)
	}
}

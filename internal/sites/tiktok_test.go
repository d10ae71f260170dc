package sites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTikTokFetchInfoPrefersHD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("url") == "" {
			t.Errorf("Expected url form field, got %v", r.Form)
		}
		w.Write([]byte(`{"code":0,"data":{
			"id":"7123","title":"A dance","play":"https://cdn.example.com/sd.mp4",
			"hdplay":"https://cdn.example.com/hd.mp4","cover":"https://cdn.example.com/c.jpg",
			"duration":15,"author":{"nickname":"someone"}}}`))
	}))
	defer server.Close()

	client := NewTikTokClient()
	client.apiBase = server.URL

	info, err := client.FetchInfo(context.Background(), "https://www.tiktok.com/@someone/video/7123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.DirectURL != "https://cdn.example.com/hd.mp4" {
		t.Errorf("Expected hd url, got %q", info.DirectURL)
	}
	if info.Title != "A dance" || info.Uploader != "someone" {
		t.Errorf("Unexpected info: %+v", info)
	}
	if info.Headers["Referer"] != "https://www.tiktok.com/" {
		t.Errorf("Expected tiktok referer, got %v", info.Headers)
	}
}

func TestTikTokFetchInfoFallsBackToSD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"id":"7123","play":"/video/sd.mp4"}}`))
	}))
	defer server.Close()

	client := NewTikTokClient()
	client.apiBase = server.URL

	info, err := client.FetchInfo(context.Background(), "https://www.tiktok.com/@someone/video/7123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Relative resolver paths get the api host prepended and the id names
	// the file when there is no title.
	if info.DirectURL != server.URL+"/video/sd.mp4" {
		t.Errorf("Expected resolved relative url, got %q", info.DirectURL)
	}
	if info.Title != "tiktok_7123" {
		t.Errorf("Expected synthesized title, got %q", info.Title)
	}
}

func TestTikTokFetchInfoResolverError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":-1,"msg":"url invalid"}`))
	}))
	defer server.Close()

	client := NewTikTokClient()
	client.apiBase = server.URL

	if _, err := client.FetchInfo(context.Background(), "https://www.tiktok.com/bogus"); err == nil {
		t.Error("Expected resolver error")
	}
}

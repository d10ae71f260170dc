package sites

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mediagrab/media-downloader/internal/model"
)

func newBiliTestServer(t *testing.T, playurlStatus int, playurlBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/x/web-interface/view"):
			w.Write([]byte(`{"code":0,"data":{
				"bvid":"BV1xx411c7mD","cid":171776208,
				"title":"Test Video","pic":"https://example.com/pic.jpg",
				"duration":213,"owner":{"name":"Uploader"}}}`))
		case strings.HasPrefix(r.URL.Path, "/x/web-interface/nav"):
			w.Write([]byte(`{"code":0,"data":{"wbi_img":{
				"img_url":"https://i0.hdslb.com/bfs/wbi/` + testImgKey + `.png",
				"sub_url":"https://i0.hdslb.com/bfs/wbi/` + testSubKey + `.png"}}}`))
		case strings.HasPrefix(r.URL.Path, "/x/player/wbi/playurl"):
			if !r.URL.Query().Has("w_rid") || !r.URL.Query().Has("wts") {
				t.Errorf("Expected signed playurl query, got %q", r.URL.RawQuery)
			}
			w.WriteHeader(playurlStatus)
			w.Write([]byte(playurlBody))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestBilibiliFetchInfo(t *testing.T) {
	server := newBiliTestServer(t, http.StatusOK, `{"code":0,"data":{}}`)
	defer server.Close()

	client := NewBilibiliClient(nil, t.TempDir())
	client.apiBase = server.URL

	info, err := client.FetchInfo(context.Background(), "https://www.bilibili.com/video/BV1xx411c7mD")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.Title != "Test Video" || info.Uploader != "Uploader" {
		t.Errorf("Unexpected info: %+v", info)
	}
	if info.DurationSec != 213 {
		t.Errorf("Expected duration 213, got %v", info.DurationSec)
	}
	if info.FetcherTier != model.TierPlatform {
		t.Errorf("Expected tier 1, got %d", info.FetcherTier)
	}
}

func TestBilibiliFetchInfoNoID(t *testing.T) {
	client := NewBilibiliClient(nil, t.TempDir())
	if _, err := client.FetchInfo(context.Background(), "https://www.bilibili.com/"); err == nil {
		t.Error("Expected error for URL without video id")
	}
}

func TestBilibiliResolveStreamsDash(t *testing.T) {
	server := newBiliTestServer(t, http.StatusOK, `{"code":0,"data":{"dash":{
		"video":[{"id":80,"baseUrl":"https://cdn.example.com/video.m4s"},{"id":64,"baseUrl":"https://cdn.example.com/lower.m4s"}],
		"audio":[{"id":30280,"baseUrl":"https://cdn.example.com/audio.m4s"}]}}}`)
	defer server.Close()

	client := NewBilibiliClient(nil, t.TempDir())
	client.apiBase = server.URL

	streams, err := client.ResolveStreams(context.Background(), "https://www.bilibili.com/video/BV1xx411c7mD")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if streams.VideoURL != "https://cdn.example.com/video.m4s" {
		t.Errorf("Expected first video track, got %q", streams.VideoURL)
	}
	if streams.AudioURL != "https://cdn.example.com/audio.m4s" {
		t.Errorf("Expected first audio track, got %q", streams.AudioURL)
	}
	if streams.Headers["Referer"] != bilibiliReferer {
		t.Errorf("Expected referer header, got %v", streams.Headers)
	}
}

func TestBilibiliResolveStreamsProgressive(t *testing.T) {
	server := newBiliTestServer(t, http.StatusOK,
		`{"code":0,"data":{"durl":[{"url":"https://cdn.example.com/full.flv"}]}}`)
	defer server.Close()

	client := NewBilibiliClient(nil, t.TempDir())
	client.apiBase = server.URL

	streams, err := client.ResolveStreams(context.Background(), "https://www.bilibili.com/video/BV1xx411c7mD")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if streams.VideoURL != "https://cdn.example.com/full.flv" || streams.AudioURL != "" {
		t.Errorf("Expected progressive stream, got %+v", streams)
	}
}

func TestBilibiliRejectedSignature(t *testing.T) {
	server := newBiliTestServer(t, http.StatusPreconditionFailed, "")
	defer server.Close()

	client := NewBilibiliClient(nil, t.TempDir())
	client.apiBase = server.URL

	_, err := client.ResolveStreams(context.Background(), "https://www.bilibili.com/video/BV1xx411c7mD")
	var te *model.TaskError
	if !errors.As(err, &te) || te.Kind != model.ErrKindWBI {
		t.Errorf("Expected ERR_WBI, got %v", err)
	}
}

func TestBilibiliKeyCaching(t *testing.T) {
	navCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/x/web-interface/nav") {
			navCalls++
		}
		w.Write([]byte(`{"code":0,"data":{"wbi_img":{
			"img_url":"https://x/` + testImgKey + `.png","sub_url":"https://x/` + testSubKey + `.png"}}}`))
	}))
	defer server.Close()

	client := NewBilibiliClient(nil, t.TempDir())
	client.apiBase = server.URL

	for i := 0; i < 3; i++ {
		if _, _, err := client.wbiKeys(context.Background()); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if navCalls != 1 {
		t.Errorf("Expected keys fetched once, got %d nav calls", navCalls)
	}
}

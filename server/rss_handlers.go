package server

import (
	"log"
	"net/http"
	"time"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/digest"
)

// rssHandler serves the latest digest as RSS; the feed has no items before the first run
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	d, _ := s.pipeline.LastDigest()

	builtAt := time.Now().UTC()
	if last := s.pipeline.LastResult(); last != nil {
		builtAt = last.StartedAt.UTC()
	}

	rss, err := digest.NewFeedRenderer(baseURL(r)).RSS(d, builtAt)
	if err != nil {
		log.Printf("[ERROR] failed to generate RSS feed: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}

// baseURL of the server as seen by the client
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

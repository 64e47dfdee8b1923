package seo

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/gin-blog/internal/model"
)

func TestSitemap(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 5, 20, 8, 30, 0, 0, time.UTC)
	out, err := Sitemap("https://blog.example.com/", []*model.Post{
		{ID: "p1", CreatedAt: updated.Add(-time.Hour), UpdatedAt: updated},
	}, now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), xml.Header))

	var set urlSet
	require.NoError(t, xml.Unmarshal(out, &set))
	require.Len(t, set.URLs, 5)
	assert.Equal(t, "https://blog.example.com/", set.URLs[0].Loc)
	assert.Equal(t, 1.0, set.URLs[0].Priority)
	assert.Equal(t, "hourly", set.URLs[1].ChangeFreq)

	last := set.URLs[4]
	assert.Equal(t, "https://blog.example.com/blog/p1", last.Loc)
	assert.Equal(t, "2024-05-20T08:30:00Z", last.LastMod)
	assert.Equal(t, "weekly", last.ChangeFreq)
	assert.Equal(t, 0.8, last.Priority)
}

func TestSitemapWithoutPosts(t *testing.T) {
	out, err := Sitemap("https://blog.example.com", nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(out), "<url>"))
}

func TestRobots(t *testing.T) {
	r := Robots("https://blog.example.com/")
	assert.Contains(t, r, "User-agent: *\nAllow: /\n")
	assert.Contains(t, r, "Disallow: /api/\n")
	assert.Contains(t, r, "User-agent: GPTBot\nDisallow: /\n")
	assert.Contains(t, r, "User-agent: Claude-Web\nDisallow: /\n")
	assert.Contains(t, r, "Sitemap: https://blog.example.com/sitemap.xml\n")
	assert.Contains(t, r, "Host: https://blog.example.com\n")
}

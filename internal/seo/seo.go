// Package seo 生成 sitemap.xml 与 robots.txt。
package seo

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/d60-Lab/gin-blog/internal/model"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	NS      string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

var staticRoutes = []struct {
	path     string
	freq     string
	priority float64
}{
	{"/", "daily", 1.0},
	{"/home", "hourly", 0.9},
	{"/dashboard", "daily", 0.8},
	{"/landing", "weekly", 0.7},
}

// Sitemap 静态路由加每篇文章一条 /blog/<id>。
func Sitemap(baseURL string, posts []*model.Post, now time.Time) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")
	set := urlSet{NS: sitemapNS}
	stamp := now.UTC().Format(time.RFC3339)
	for _, r := range staticRoutes {
		set.URLs = append(set.URLs, entry{Loc: base + r.path, LastMod: stamp, ChangeFreq: r.freq, Priority: r.priority})
	}
	for _, p := range posts {
		mod := p.UpdatedAt
		if mod.IsZero() {
			mod = p.CreatedAt
		}
		set.URLs = append(set.URLs, entry{
			Loc:        fmt.Sprintf("%s/blog/%s", base, p.ID),
			LastMod:    mod.UTC().Format(time.RFC3339),
			ChangeFreq: "weekly",
			Priority:   0.8,
		})
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

var (
	disallowed  = []string{"/api/", "/dashboard", "/_next/", "/admin/", "/private/"}
	blockedBots = []string{"GPTBot", "ChatGPT-User", "CCBot", "anthropic-ai", "Claude-Web"}
)

// Robots 渲染 robots.txt
func Robots(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\n")
	for _, d := range disallowed {
		fmt.Fprintf(&b, "Disallow: %s\n", d)
	}
	for _, bot := range blockedBots {
		fmt.Fprintf(&b, "\nUser-agent: %s\nDisallow: /\n", bot)
	}
	fmt.Fprintf(&b, "\nSitemap: %s/sitemap.xml\n", base)
	fmt.Fprintf(&b, "Host: %s\n", base)
	return b.String()
}

package feed

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/news-digest/app/timeago"
)

var (
	numberRegex = regexp.MustCompile(`\d+`)
	ageRegex    = regexp.MustCompile(`(?i)\d+\s+(?:minute|hour|day)s?\s+ago`)
	itemIDRegex = regexp.MustCompile(`item\?id=(\d+)`)
)

// Scraper extracts ranked entries from an Arc-style listing page, the
// markup shared by Hacker News and Startup News.
type Scraper struct{}

func NewScraper() *Scraper {
	return &Scraper{}
}

func (s *Scraper) Run(body, pageURL string) ([]Item, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var items []Item
	doc.Find("td.title").Each(func(_ int, cell *goquery.Selection) {
		link := cell.Find(".titleline > a").First()
		if link.Length() == 0 {
			link = cell.ChildrenFiltered("a").First()
		}
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(link.Text()) == "" {
			return
		}
		// "More" pagination link
		if rel, _ := link.Attr("rel"); rel == "next" || strings.EqualFold(strings.TrimSpace(link.Text()), "more") {
			return
		}

		row := cell.ParentFiltered("tr")
		item := Item{
			Title: strings.TrimSpace(link.Text()),
			URL:   resolveURL(base, href),
			Rank:  parseNumber(row.Find(".rank").Text()),
		}
		if item.Rank == 0 {
			item.Rank = parseNumber(row.Find("td.title").First().Text())
		}

		if id, ok := row.Attr("id"); ok {
			item.ID = id
		}

		item.Comhead = strings.TrimSpace(row.Find(".sitestr").First().Text())
		if item.Comhead == "" {
			item.Comhead = strings.Trim(strings.TrimSpace(row.Find(".comhead").First().Text()), "() ")
		}

		s.parseSubtext(base, row.Next().Find("td.subtext").First(), &item)

		if item.ID == "" {
			// Fall back to the link itself for self posts
			if m := itemIDRegex.FindStringSubmatch(href); m != nil {
				item.ID = m[1]
			} else {
				item.ID = item.URL
			}
		}
		if item.Rank == 0 {
			item.Rank = len(items) + 1
		}

		items = append(items, item)
	})

	return items, nil
}

func (s *Scraper) parseSubtext(base *url.URL, subtext *goquery.Selection, item *Item) {
	if subtext.Length() == 0 {
		return
	}

	item.Score = parseNumber(subtext.Find(".score, span[id^='score_']").First().Text())

	author := subtext.Find("a.hnuser").First()
	if author.Length() == 0 {
		author = subtext.Find("a[href^='user?id=']").First()
	}
	item.Author = strings.TrimSpace(author.Text())

	age := strings.TrimSpace(subtext.Find(".age").First().Text())
	if age == "" {
		age = ageRegex.FindString(subtext.Text())
	}
	item.SubmitTime = timeago.Phrase(age)

	subtext.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "item?id=") {
			return
		}
		text := strings.ToLower(strings.ReplaceAll(a.Text(), "\u00a0", " "))
		if strings.Contains(text, "comment") || strings.Contains(text, "discuss") {
			item.CommentURL = resolveURL(base, href)
			item.CommentCount = parseNumber(text)
			if item.ID == "" {
				if m := itemIDRegex.FindStringSubmatch(href); m != nil {
					item.ID = m[1]
				}
			}
		}
	})
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func parseNumber(s string) int {
	n, err := strconv.Atoi(numberRegex.FindString(s))
	if err != nil {
		return 0
	}
	return n
}

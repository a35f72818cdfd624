package rs

import (
	"encoding/xml"
	"time"

	"github.com/gorilla/feeds"
)

// PublishXML returns XML bytes (application/rss+xml) of the reader's current
// filtered view, so the sieved feed can be consumed by any ordinary reader.
func (r *Reader) PublishXML(title, link, description, author, email string) (bytes []byte, err error) {
	return publishXML(title, link, description, author, email, r.Items())
}

// render given items as an RSS document
func publishXML(title, link, description, author, email string, items []FeedItem) (bytes []byte, err error) {
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: description,
		Author:      &feeds.Author{Name: author, Email: email},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, item := range items {
		feedItem := feeds.Item{
			Id:    item.Link,
			Title: item.Title,
			Link: &feeds.Link{
				Href: item.Link,
			},
			Description: item.Summary,
			Content:     item.Content,
		}
		if item.Author != "" {
			feedItem.Author = &feeds.Author{Name: item.Author}
		}
		if item.PublishedAt != nil {
			feedItem.Created = *item.PublishedAt
		}

		feedItems = append(feedItems, &feedItem)
	}
	feed.Items = feedItems

	rssFeed := (&feeds.Rss{
		Feed: feed,
	}).RssFeed()

	return xml.MarshalIndent(rssFeed.FeedXml(), "", "  ")
}

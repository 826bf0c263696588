// Package youtube fetches channel and video metadata for content-sourced
// leads (creators publishing vector-database content).
package youtube

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// ChannelInfo is the channel metadata the pipeline uses.
type ChannelInfo struct {
	ID          string
	Title       string
	Description string
	CustomURL   string
	Country     string
	Subscribers uint64
	VideoCount  uint64
}

// VideoInfo is the video metadata the pipeline uses.
type VideoInfo struct {
	ID          string
	Title       string
	Description string
	ChannelID   string
	Channel     string
	PublishedAt string
	Tags        []string
}

// Client reads public YouTube metadata.
type Client interface {
	GetChannel(ctx context.Context, channelID string) (*ChannelInfo, error)
	GetVideo(ctx context.Context, videoID string) (*VideoInfo, error)
	SearchChannels(ctx context.Context, query string, limit int) ([]ChannelInfo, error)
}

type apiClient struct {
	svc *yt.Service
}

// NewClient creates a YouTube Data API client using an API key.
func NewClient(ctx context.Context, apiKey string) (Client, error) {
	svc, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "youtube: create service")
	}
	return &apiClient{svc: svc}, nil
}

func (c *apiClient) GetChannel(ctx context.Context, channelID string) (*ChannelInfo, error) {
	resp, err := c.svc.Channels.List([]string{"snippet", "statistics"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("youtube: get channel %s", channelID))
	}
	if len(resp.Items) == 0 {
		return nil, eris.Errorf("youtube: channel %s not found", channelID)
	}
	return channelInfo(resp.Items[0]), nil
}

func (c *apiClient) GetVideo(ctx context.Context, videoID string) (*VideoInfo, error) {
	resp, err := c.svc.Videos.List([]string{"snippet"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("youtube: get video %s", videoID))
	}
	if len(resp.Items) == 0 {
		return nil, eris.Errorf("youtube: video %s not found", videoID)
	}

	v := resp.Items[0]
	return &VideoInfo{
		ID:          v.Id,
		Title:       v.Snippet.Title,
		Description: v.Snippet.Description,
		ChannelID:   v.Snippet.ChannelId,
		Channel:     v.Snippet.ChannelTitle,
		PublishedAt: v.Snippet.PublishedAt,
		Tags:        v.Snippet.Tags,
	}, nil
}

func (c *apiClient) SearchChannels(ctx context.Context, query string, limit int) ([]ChannelInfo, error) {
	if limit <= 0 {
		limit = 10
	}

	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrap(err, "youtube: search channels")
	}

	channels := make([]ChannelInfo, 0, len(resp.Items))
	for _, item := range resp.Items {
		info, err := c.GetChannel(ctx, item.Snippet.ChannelId)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *info)
	}
	return channels, nil
}

func channelInfo(ch *yt.Channel) *ChannelInfo {
	info := &ChannelInfo{
		ID:          ch.Id,
		Title:       ch.Snippet.Title,
		Description: ch.Snippet.Description,
		CustomURL:   ch.Snippet.CustomUrl,
		Country:     ch.Snippet.Country,
	}
	if ch.Statistics != nil {
		info.Subscribers = ch.Statistics.SubscriberCount
		info.VideoCount = ch.Statistics.VideoCount
	}
	return info
}

package source

import (
	"context"

	"github.com/trychroma/gtm-cli/internal/model"
	"github.com/trychroma/gtm-cli/pkg/youtube"
)

// YouTubeSource turns channels publishing vector-database content into raw
// records. Channel title becomes the company name; the custom URL, when the
// channel has one, becomes the website. Three modes: search by query, fetch
// one channel by id, or fetch a video's publishing channel by video id.
type YouTubeSource struct {
	client    youtube.Client
	query     string
	limit     int
	channelID string
	videoID   string
}

// YouTubeOption configures the source.
type YouTubeOption func(*YouTubeSource)

// WithChannelID fetches one channel directly instead of searching.
func WithChannelID(id string) YouTubeOption {
	return func(s *YouTubeSource) {
		s.channelID = id
	}
}

// WithVideoID resolves a video to its publishing channel instead of searching.
func WithVideoID(id string) YouTubeOption {
	return func(s *YouTubeSource) {
		s.videoID = id
	}
}

// NewYouTubeSource creates an adapter searching channels for the given query.
func NewYouTubeSource(client youtube.Client, query string, limit int, opts ...YouTubeOption) *YouTubeSource {
	if limit <= 0 {
		limit = 10
	}
	s := &YouTubeSource{client: client, query: query, limit: limit}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *YouTubeSource) Name() string {
	return "youtube"
}

func (s *YouTubeSource) Fetch(ctx context.Context) ([]model.RawRecord, error) {
	switch {
	case s.videoID != "":
		return s.fetchVideo(ctx)
	case s.channelID != "":
		return s.fetchChannel(ctx, s.channelID, "")
	default:
		return s.search(ctx)
	}
}

func (s *YouTubeSource) search(ctx context.Context) ([]model.RawRecord, error) {
	channels, err := s.client.SearchChannels(ctx, s.query, s.limit)
	if err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(channels))
	for i := range channels {
		records = append(records, s.channelRecord(&channels[i], ""))
	}
	return records, nil
}

func (s *YouTubeSource) fetchChannel(ctx context.Context, channelID, videoTitle string) ([]model.RawRecord, error) {
	ch, err := s.client.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return []model.RawRecord{s.channelRecord(ch, videoTitle)}, nil
}

// fetchVideo resolves the video to its publishing channel; the video title is
// carried as context for later review.
func (s *YouTubeSource) fetchVideo(ctx context.Context) ([]model.RawRecord, error) {
	v, err := s.client.GetVideo(ctx, s.videoID)
	if err != nil {
		return nil, err
	}
	return s.fetchChannel(ctx, v.ChannelID, v.Title)
}

func (s *YouTubeSource) channelRecord(ch *youtube.ChannelInfo, videoTitle string) model.RawRecord {
	fields := map[string]any{
		"company_name": ch.Title,
		"category":     "lead",
	}
	if ch.CustomURL != "" {
		fields["website"] = "https://youtube.com/" + ch.CustomURL
	}
	if videoTitle != "" {
		fields["video_title"] = videoTitle
	}
	return model.RawRecord{Source: s.Name(), Fields: fields}
}

package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bwise1/skipvote_bot/internal/model"
	"github.com/google/go-querystring/query"
)

const DefaultBaseURL = "https://api.spotify.com/v1"

// SpotifyClient handles communication with the Spotify Web API on behalf of
// one authorized account. Client must attach the account's bearer token.
type SpotifyClient struct {
	BaseURL string
	Client  *http.Client
}

func NewSpotifyClient(client *http.Client) *SpotifyClient {
	return &SpotifyClient{
		BaseURL: DefaultBaseURL,
		Client:  client,
	}
}

type Artist struct {
	Name string `json:"name"`
}

type Track struct {
	Name    string   `json:"name"`
	URI     string   `json:"uri"`
	Artists []Artist `json:"artists"`
}

func (t Track) Info() model.TrackInfo {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return model.TrackInfo{Name: t.Name, Artist: strings.Join(names, ", "), URI: t.URI}
}

type currentlyPlayingResponse struct {
	IsPlaying bool   `json:"is_playing"`
	Item      *Track `json:"item"`
}

type SearchParams struct {
	Query string `url:"q"`
	Type  string `url:"type"`
	Limit int    `url:"limit,omitempty"`
}

type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

type QueueParams struct {
	URI string `url:"uri"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *SpotifyClient) do(ctx context.Context, method, path string, params interface{}, out interface{}) (int, error) {
	fullURL := c.BaseURL + path
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return 0, fmt.Errorf("failed to encode query: %w", err)
		}
		fullURL = fmt.Sprintf("%s?%s", fullURL, v.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(bodyBytes, &apiErr)
		return resp.StatusCode, fmt.Errorf("spotify API error: status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	if out != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// CurrentlyPlaying returns the track on the account's active device. It
// reports false when nothing is playing.
func (c *SpotifyClient) CurrentlyPlaying(ctx context.Context) (model.TrackInfo, bool, error) {
	var out currentlyPlayingResponse
	status, err := c.do(ctx, http.MethodGet, "/me/player/currently-playing", nil, &out)
	if err != nil {
		return model.TrackInfo{}, false, err
	}
	if status == http.StatusNoContent || out.Item == nil {
		return model.TrackInfo{}, false, nil
	}
	return out.Item.Info(), true, nil
}

func (c *SpotifyClient) SkipCurrentTrack(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/me/player/next", nil, nil)
	return err
}

// SearchTrack returns the best match for q.
func (c *SpotifyClient) SearchTrack(ctx context.Context, q string) (model.TrackInfo, bool, error) {
	var out searchResponse
	params := SearchParams{Query: q, Type: "track", Limit: 1}
	if _, err := c.do(ctx, http.MethodGet, "/search", params, &out); err != nil {
		return model.TrackInfo{}, false, err
	}
	if len(out.Tracks.Items) == 0 {
		return model.TrackInfo{}, false, nil
	}
	return out.Tracks.Items[0].Info(), true, nil
}

func (c *SpotifyClient) Queue(ctx context.Context, uri string) error {
	_, err := c.do(ctx, http.MethodPost, "/me/player/queue", QueueParams{URI: uri}, nil)
	return err
}

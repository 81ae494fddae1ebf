package social

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const twitterAPIBase = "https://api.twitter.com"

// Credentials holds the OAuth 1.0a user-context credential set for
// posting.
type Credentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// Complete reports whether every credential is present.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Client posts to the Twitter API v2 using OAuth 1.0a request signing.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Twitter API client.
func NewClient(creds Credentials, logger *slog.Logger) *Client {
	return &Client{
		creds:   creds,
		baseURL: twitterAPIBase,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"errors,omitempty"`
}

// PostTweet publishes text and returns the new tweet's id. When
// inReplyTo is non-empty the tweet is threaded as a reply to that id;
// otherwise it is a top-level post.
func (c *Client) PostTweet(ctx context.Context, text, inReplyTo string) (string, error) {
	apiURL := c.baseURL + "/2/tweets"

	payload := tweetRequest{Text: text}
	if inReplyTo != "" {
		payload.Reply = &tweetReply{InReplyToTweetID: inReplyTo}
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal tweet request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	authHeader, err := c.oauthHeader(http.MethodPost, apiURL)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var tweetResp tweetResponse
	if err := json.Unmarshal(respBytes, &tweetResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		if len(tweetResp.Errors) > 0 {
			return "", fmt.Errorf("twitter API error: %s", tweetResp.Errors[0].Message)
		}
		return "", fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	c.logger.Info("tweet posted",
		"tweet_id", tweetResp.Data.ID,
		"text_length", len([]rune(text)),
		"is_reply", inReplyTo != "")

	return tweetResp.Data.ID, nil
}

// ValidateCredentials checks the credential set against the /2/users/me
// endpoint.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	apiURL := c.baseURL + "/2/users/me"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	authHeader, err := c.oauthHeader(http.MethodGet, apiURL)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("invalid credentials (status %d): %s", resp.StatusCode, string(body))
	}

	c.logger.Info("twitter credentials validated")
	return nil
}

// oauthHeader builds an OAuth 1.0a authorization header for the
// request.
func (c *Client) oauthHeader(method, apiURL string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	nonceStr := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base64.StdEncoding.EncodeToString(nonce))

	oauthParams := map[string]string{
		"oauth_consumer_key":     c.creds.APIKey,
		"oauth_nonce":            nonceStr,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_token":            c.creds.AccessToken,
		"oauth_version":          "1.0",
	}

	paramPairs := make([]string, 0, len(oauthParams))
	for k, v := range oauthParams {
		paramPairs = append(paramPairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	sort.Strings(paramPairs)
	paramString := strings.Join(paramPairs, "&")

	signatureBase := method + "&" + url.QueryEscape(apiURL) + "&" + url.QueryEscape(paramString)
	signingKey := url.QueryEscape(c.creds.APISecret) + "&" + url.QueryEscape(c.creds.AccessTokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(signatureBase))
	oauthParams["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authPairs := make([]string, 0, len(oauthParams))
	for k, v := range oauthParams {
		authPairs = append(authPairs, url.QueryEscape(k)+"=\""+url.QueryEscape(v)+"\"")
	}
	sort.Strings(authPairs)

	return "OAuth " + strings.Join(authPairs, ", "), nil
}

package gmailclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client wraps the Gmail API client used to send booking notifications
type Client struct {
	service      *gmail.Service
	sender       string
	interval     time.Duration
	lastSendTime time.Time
	sendMutex    sync.Mutex
}

// NewClient creates a Gmail client authorised by tokens from source.
// sender is used as the From address; empty lets Gmail use the account address.
func NewClient(ctx context.Context, source oauth2.TokenSource, sender string) (*Client, error) {
	service, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, source)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return newClient(service, sender), nil
}

func newClient(service *gmail.Service, sender string) *Client {
	return &Client{
		service:  service,
		sender:   sender,
		interval: EmailInterval,
	}
}

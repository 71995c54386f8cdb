// Package transport defines the notification-channel capability shared by the
// reconciler and the HTTP relay. Implementations must be safe for
// interleaved calls from independent goroutines.
package transport

import "context"

// Sender delivers pre-rendered messages to the configured chat.
// Text and captions use Telegram HTML parse mode; escaping is the
// caller's responsibility (see pkg/tghtml).
type Sender interface {
	SendText(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, url, caption string) error
}

package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/playsquare/reviewdesk/internal/domain"
	"github.com/playsquare/reviewdesk/internal/domain/review"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// channelPrefix maps a review channel to its column prefix in game_events.
func channelPrefix(ch review.Channel) string {
	switch ch {
	case review.ChannelPM:
		return "pm"
	case review.ChannelDev:
		return "dev"
	case review.ChannelQA:
		return "qa"
	case review.ChannelCS:
		return "cs"
	}
	return ""
}

// statusColumn returns the status column name for a channel.
func statusColumn(ch review.Channel) string {
	return channelPrefix(ch) + "_status"
}

// reviewedAtColumn returns the reviewed-at column name for a channel.
func reviewedAtColumn(ch review.Channel) string {
	return channelPrefix(ch) + "_reviewed_at"
}

// notFoundWrap checks whether err is pgx.ErrNoRows and, if so, wraps
// domain.ErrNotFound with the given message. Otherwise it wraps the
// original error.
func notFoundWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

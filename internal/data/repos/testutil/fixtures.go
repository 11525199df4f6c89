package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/termbase-backend/internal/domain"
)

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Topic {
	tb.Helper()
	t := &types.Topic{ID: uuid.New(), Name: name}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

// SeedTerm stores a term whose tiers are all derived from raw by simple lowering,
// which is enough for repo tests that do not exercise normalization.
func SeedTerm(tb testing.TB, ctx context.Context, tx *gorm.DB, topicID uuid.UUID, raw, cleaned, stemmed string) *types.Term {
	tb.Helper()
	t := &types.Term{
		ID:          uuid.New(),
		TopicID:     topicID,
		Language:    "english",
		RawText:     raw,
		CleanedText: cleaned,
		StemmedText: stemmed,
		FirstLetter: firstRune(stemmed),
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed term: %v", err)
	}
	return t
}

func SeedDescription(tb testing.TB, ctx context.Context, tx *gorm.DB, termID uuid.UUID, raw, cleaned, stemmed string) *types.Description {
	tb.Helper()
	d := &types.Description{
		ID:          uuid.New(),
		TermID:      termID,
		Language:    "english",
		RawText:     raw,
		CleanedText: cleaned,
		StemmedText: stemmed,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed description: %v", err)
	}
	return d
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

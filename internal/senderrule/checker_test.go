package senderrule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker_IsIgnored(t *testing.T) {
	checker := NewChecker([]string{" News.Example.com ", "@promo.io", ""}, zap.NewNop())

	tests := []struct {
		from string
		want bool
	}{
		{"digest@news.example.com", true},
		{"digest@NEWS.EXAMPLE.COM", true},
		{"offers@mail.promo.io", true},
		{"boss@example.com", false},
		{"someone@notpromo.io", false},
		{"not-an-address", false},
		{"trailing@", false},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.IsIgnored(tt.from))
		})
	}
}

func TestChecker_Empty(t *testing.T) {
	checker := NewChecker(nil, nil)
	assert.False(t, checker.IsIgnored("a@b.com"))
}

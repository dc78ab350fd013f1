package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/model"
)

func TestUpdateUserParams_ToSet(t *testing.T) {
	name := "Ada"
	empty := ""
	avatar := model.Asset{URL: "https://cdn/avatar.png", PublicID: "avatars/1.png"}

	set := UpdateUserParams{Name: &name, TwitterURL: &empty, Avatar: &avatar}.toSet()

	assert.Equal(t, "Ada", set["name"])
	assert.Equal(t, "", set["twitter_url"])
	assert.Equal(t, avatar, set["avatar"])
	assert.NotContains(t, set, "email")
	assert.NotContains(t, set, "resume")
	assert.Len(t, set, 3)
}

func TestUpdateUserParams_ToSetEmpty(t *testing.T) {
	assert.Empty(t, UpdateUserParams{}.toSet())
}

func TestMapError(t *testing.T) {
	duplicate := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no documents", err: mongo.ErrNoDocuments, want: ErrUserNotFound},
		{name: "duplicate key", err: duplicate, want: ErrDuplicateUser},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrStoreUnavailable},
		{name: "other", err: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewPage(t *testing.T) {
	cases := []struct {
		name      string
		total     int64
		skip      int64
		limit     int64
		wantPage  int64
		wantPages int64
	}{
		{"first page", 25, 0, 10, 1, 3},
		{"second page", 25, 10, 10, 2, 3},
		{"last partial page", 25, 20, 10, 3, 3},
		{"unaligned skip", 25, 15, 10, 2, 3},
		{"empty collection", 0, 0, 10, 1, 0},
		{"exact multiple", 30, 0, 10, 1, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := NewPage(nil, tc.total, tc.skip, tc.limit)
			assert.Equal(t, tc.wantPage, page.Page)
			assert.Equal(t, tc.wantPages, page.Pages)
			assert.Equal(t, tc.total, page.Total)
			assert.NotNil(t, page.Items)
		})
	}
}

func TestToResponseStringifiesID(t *testing.T) {
	id := primitive.NewObjectID()
	a := &Article{ID: id, Title: "t", URL: "https://example.com/a"}

	resp := ToResponse(a)

	assert.Equal(t, id.Hex(), resp.ID)
	assert.Equal(t, []string{}, resp.Videos)
	assert.Equal(t, []string{}, resp.Keywords)
	assert.Nil(t, resp.MintedBy)
}

func TestExtractSource(t *testing.T) {
	assert.Equal(t, "www.example.com", ExtractSource("https://www.example.com/news/1?x=y"))
	assert.Equal(t, "example.com:8080", ExtractSource("http://example.com:8080/"))
	assert.Equal(t, "", ExtractSource("::not a url"))
}

func TestIsMinted(t *testing.T) {
	a := &Article{}
	assert.False(t, a.IsMinted())

	a.MintedBy = StringPtr("")
	assert.False(t, a.IsMinted())

	a.MintedBy = StringPtr("DAG123")
	assert.True(t, a.IsMinted())
}

func TestGenerateIDIsStable(t *testing.T) {
	a := GenerateID("https://example.com/a")
	assert.Len(t, a, 16)
	assert.Equal(t, a, GenerateID("https://example.com/a"))
	assert.NotEqual(t, a, GenerateID("https://example.com/b"))
}

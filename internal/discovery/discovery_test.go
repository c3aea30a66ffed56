package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubSearchService struct {
	urls   []string
	err    error
	gotQ   string
	gotNum int64
	called bool
}

func (s *stubSearchService) Search(_ context.Context, query string, num int64) ([]string, error) {
	s.called = true
	s.gotQ = query
	s.gotNum = num
	return s.urls, s.err
}

func TestDiscover_AppendsSiteFilter(t *testing.T) {
	stub := &stubSearchService{urls: []string{
		"https://www.linkedin.com/in/janedoe",
	}}
	d := newDiscovererWithService(stub, false)

	got := d.Discover(context.Background(), "machine learning engineer", 10)

	assert.Equal(t, []string{"https://www.linkedin.com/in/janedoe"}, got)
	assert.Contains(t, stub.gotQ, "machine learning engineer")
	assert.Contains(t, stub.gotQ, ProfileSiteFilter)
}

func TestDiscover_FilterNotDuplicated(t *testing.T) {
	stub := &stubSearchService{}
	d := newDiscovererWithService(stub, false)

	d.Discover(context.Background(), "golang engineer site:linkedin.com/in/", 5)

	assert.Equal(t, 1, len(splitOccurrences(stub.gotQ, ProfileSiteFilter)))
}

func splitOccurrences(s, sub string) []int {
	var idxs []int
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func TestDiscover_DeduplicatesPreservingOrder(t *testing.T) {
	stub := &stubSearchService{urls: []string{
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/b",
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/c",
		"https://www.linkedin.com/in/b",
	}}
	d := newDiscovererWithService(stub, false)

	got := d.Discover(context.Background(), "query", 10)

	assert.Equal(t, []string{
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/b",
		"https://www.linkedin.com/in/c",
	}, got)
}

func TestDiscover_TruncatesToMaxResults(t *testing.T) {
	stub := &stubSearchService{urls: []string{
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/b",
		"https://www.linkedin.com/in/c",
	}}
	d := newDiscovererWithService(stub, false)

	got := d.Discover(context.Background(), "query", 2)
	assert.Len(t, got, 2)
}

func TestDiscover_EmptyOnAPIError(t *testing.T) {
	stub := &stubSearchService{err: errors.New("quota exceeded")}
	d := newDiscovererWithService(stub, false)

	got := d.Discover(context.Background(), "query", 10)
	assert.Empty(t, got)
}

func TestDiscover_EmptyWithoutCredentials(t *testing.T) {
	d := NewDiscoverer(context.Background(), "", "", false)

	got := d.Discover(context.Background(), "query", 10)
	assert.Empty(t, got)
}

func TestDiscover_CapsPageSize(t *testing.T) {
	stub := &stubSearchService{}
	d := newDiscovererWithService(stub, false)

	d.Discover(context.Background(), "query", 50)
	assert.Equal(t, int64(10), stub.gotNum)
}

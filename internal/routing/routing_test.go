package routing

import (
	"net/url"
	"testing"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]types.Project{
		{Key: "churn", Title: "Churn Model"},
		{Key: "sales", Title: "Sales Dashboard"},
	}, nil)
}

func TestResolve(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name     string
		state    State
		wantKind Kind
	}{
		{name: "absent key", state: State{}, wantKind: Home},
		{name: "known key", state: State{ProjectKey: "churn"}, wantKind: Detail},
		{name: "unknown key", state: State{ProjectKey: "nope"}, wantKind: NotFound},
		{name: "filters only", state: State{Tags: []string{"AI"}, Search: "x"}, wantKind: Home},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(tt.state, c)
			assert.Equal(t, tt.wantKind, r.Kind)
			if tt.wantKind == Detail {
				require.NotNil(t, r.Project)
				assert.Equal(t, tt.state.ProjectKey, r.Project.Key)
			}
			if tt.wantKind == NotFound {
				assert.Equal(t, "nope", r.Key)
				assert.Nil(t, r.Project)
			}
		})
	}
}

func TestClear_AlwaysHome(t *testing.T) {
	c := testCatalog()
	for _, s := range []State{{}, {ProjectKey: "churn"}, {ProjectKey: "nope", Tags: []string{"AI"}}} {
		cleared := s.Clear()
		assert.Equal(t, Home, Resolve(cleared, c).Kind)
		assert.Equal(t, s.Tags, cleared.Tags)
	}
}

func TestParseState(t *testing.T) {
	q, err := url.ParseQuery("project=churn&tag=AI&tag=&tag=NLP&q=model")
	require.NoError(t, err)

	s := ParseState(q)
	assert.Equal(t, State{ProjectKey: "churn", Tags: []string{"AI", "NLP"}, Search: "model"}, s)
	assert.True(t, s.Filtered())
	assert.True(t, s.HasTag("NLP"))
	assert.False(t, s.WithoutFilters().Filtered())
}

func TestState_URL(t *testing.T) {
	assert.Equal(t, "/", State{}.URL())
	assert.Equal(t, "/?project=churn", State{}.WithProject("churn").URL())

	s := State{ProjectKey: "churn", Tags: []string{"AI"}, Search: "big data"}
	assert.Equal(t, "/?project=churn&q=big+data&tag=AI", s.URL())
	assert.Equal(t, "/?q=big+data&tag=AI", s.Clear().URL())

	roundTrip := ParseState(s.Query())
	assert.Equal(t, s, roundTrip)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "home", Home.String())
	assert.Equal(t, "detail", Detail.String())
	assert.Equal(t, "not_found", NotFound.String())
}

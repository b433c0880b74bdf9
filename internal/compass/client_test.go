package compass_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"

	"github.com/jask/compass/internal/compass"
	"github.com/jask/compass/internal/compasstest"
	"github.com/jask/compass/internal/layer"
)

func newServer(t *testing.T) *compasstest.Server {
	t.Helper()
	srv := compasstest.NewServer(
		compasstest.Ability{ID: "ab-1", TechniqueID: "T1003"},
		compasstest.Ability{ID: "ab-2", TechniqueID: "T1059"},
		compasstest.Ability{ID: "ab-3", TechniqueID: "T1082"},
	)
	t.Cleanup(srv.Close)
	srv.AddAdversary("42", "Hunter", "ab-2")
	return srv
}

func TestGenerateLayerAll(t *testing.T) {
	t.Parallel()
	srv := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := compass.New(srv.URL)
	doc, err := c.GenerateLayer(ctx, layer.Select(""))
	require.NoError(t, err)

	bodies := srv.LayerBodies()
	require.Len(t, bodies, 1)
	require.JSONEq(t, `{"index":"all"}`, string(bodies[0]))

	s := doc.Summary()
	require.Equal(t, "All-Abilities", s.Name)
	require.Equal(t, 3, s.Techniques)
}

func TestGenerateLayerForAdversary(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	c := compass.New(srv.URL + "/")
	doc, err := c.GenerateLayer(context.Background(), layer.Select("42"))
	require.NoError(t, err)

	bodies := srv.LayerBodies()
	require.Len(t, bodies, 1)
	require.JSONEq(t, `{"index":"adversary","adversary_id":"42"}`, string(bodies[0]))

	var nav layer.Navigator
	require.NoError(t, json.Unmarshal(doc.Raw(), &nav))
	require.Equal(t, "Hunter", nav.Name)
	require.Len(t, nav.Techniques, 1)
	require.Equal(t, "T1059", nav.Techniques[0].TechniqueID)
}

func TestGenerateLayerLegacyPayload(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	_, err := compass.New(srv.URL).GenerateLayer(context.Background(), layer.SelectLegacy(""))
	require.NoError(t, err)
	require.JSONEq(t, `{"all":true}`, string(srv.LayerBodies()[0]))
	require.True(t, srv.Selections()[0].Legacy)
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()
	srv := newServer(t)
	srv.RequireAPIKey("secret")

	c := compass.New(srv.URL)
	_, err := c.GenerateLayer(context.Background(), layer.Select(""))
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.Unauthorized), "got %v", err)

	c = compass.New(srv.URL, compass.WithAPIKey(" secret "))
	_, err = c.GenerateLayer(context.Background(), layer.Select("missing"))
	require.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	srv.FailNext(compass.LayerPath, http.StatusUnprocessableEntity)
	_, err = c.GenerateLayer(context.Background(), layer.Select(""))
	require.True(t, errors.Is(err, errors.BadRequest), "got %v", err)

	srv.FailNext(compass.LayerPath, http.StatusInternalServerError)
	_, err = c.GenerateLayer(context.Background(), layer.Select(""))
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestEmptyServerURL(t *testing.T) {
	t.Parallel()
	_, err := compass.New("  ").Adversaries(context.Background())
	require.True(t, errors.Is(err, errors.NotValid), "got %v", err)
}

func TestUploadAdversarySendsMultipartFileField(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	nav := layer.Boilerplate("Imported", "from file")
	nav.AddTechnique("T1003")
	nav.AddTechnique("T1082")
	data, err := json.Marshal(nav)
	require.NoError(t, err)

	c := compass.New(srv.URL)
	res, err := c.UploadAdversary(context.Background(), compass.UploadFile{
		Name: "/tmp/layers/imported.json",
		Body: strings.NewReader(string(data)),
	})
	require.NoError(t, err)
	require.Equal(t, compass.UploadResult{AdversaryID: "imported", Name: "Imported"}, res)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	require.Equal(t, compass.UploadField, uploads[0].Field)
	require.Equal(t, "imported.json", uploads[0].Filename)
	require.Equal(t, data, uploads[0].Body)

	advs, err := c.Adversaries(context.Background())
	require.NoError(t, err)
	require.Len(t, advs, 2)
	require.Equal(t, "42", advs[0].AdversaryID)
	require.Equal(t, "imported", advs[1].AdversaryID)
}

func TestUploadAdversaryRejectsEmptyName(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	_, err := compass.New(srv.URL).UploadAdversary(context.Background(), compass.UploadFile{Name: " ", Body: strings.NewReader("{}")})
	require.True(t, errors.Is(err, errors.NotValid), "got %v", err)
	require.Empty(t, srv.Uploads())
}

func TestUploadAdversaryNonJSONResponse(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	_, err := compass.New(srv.URL).UploadAdversary(context.Background(), compass.UploadFile{Name: "notes.txt", Body: strings.NewReader("plain")})
	require.True(t, errors.Is(err, errors.BadRequest), "got %v", err)
	require.Len(t, srv.Uploads(), 1)
}

func TestTimeoutAppliesWithoutTouchingCallerClient(t *testing.T) {
	t.Parallel()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	orders := map[string]func(*http.Client) []compass.Option{
		"client first": func(hc *http.Client) []compass.Option {
			return []compass.Option{compass.WithHTTPClient(hc), compass.WithTimeout(50 * time.Millisecond)}
		},
		"timeout first": func(hc *http.Client) []compass.Option {
			return []compass.Option{compass.WithTimeout(50 * time.Millisecond), compass.WithHTTPClient(hc)}
		},
	}
	for name, opts := range orders {
		t.Run(name, func(t *testing.T) {
			hc := &http.Client{}
			c := compass.New(slow.URL, opts(hc)...)

			start := time.Now()
			_, err := c.Adversaries(context.Background())
			require.Error(t, err)
			require.Less(t, time.Since(start), time.Second)
			require.Zero(t, hc.Timeout, "caller's client is left alone")
		})
	}
}

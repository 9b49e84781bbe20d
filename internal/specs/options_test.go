package specs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haulplan/internal/integrations/carapi"
	"haulplan/internal/integrations/vpic"
)

func TestCanonName(t *testing.T) {
	assert.Equal(t, "crv", canonName("CR-V"))
	assert.Equal(t, "landrover", canonName("Land Rover"))
	assert.Equal(t, "mercedesbenz", canonName(" Mercedes-Benz "))
	assert.Equal(t, "", canonName(""))
}

func TestMakes(t *testing.T) {
	makes := Makes()
	assert.Len(t, makes, len(StaticMakes))
	assert.True(t, sort.SliceIsSorted(makes, func(i, j int) bool {
		return strings.ToLower(makes[i]) < strings.ToLower(makes[j])
	}))
	assert.Equal(t, "Acura", makes[0])
	assert.Contains(t, makes, "Alfa Romeo")
	assert.Contains(t, makes, "Polestar")

	// Sorting must not reorder the source table.
	assert.Equal(t, "Polestar", StaticMakes[len(StaticMakes)-1])
}

func TestModelsFromCarAPIFilteredByMake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2021", r.URL.Query().Get("year"))
		fmt.Fprint(w, `{"data":[
			{"make":"HONDA","model":"Civic"},
			{"make":"Honda","model":"CIVIC"},
			{"make":"Honda","model":"Accord"},
			{"make":"Toyota","model":"Camry"},
			{"make":{"name":"Honda"},"model":{"name":"CR-V"}}
		]}`)
	}))
	defer srv.Close()

	src := OptionsSource{CarAPI: &carapi.Client{BaseURL: srv.URL, HTTP: srv.Client()}}
	models := src.Models(context.Background(), "honda", 2021)
	assert.Equal(t, []string{"Accord", "Civic", "CR-V"}, models)
}

func TestModelsFallsBackToVPIC(t *testing.T) {
	carapiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer carapiSrv.Close()
	vpicSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Results":[
			{"Make_ID":480,"Make_Name":"LAND ROVER","Model_ID":1,"Model_Name":"Discovery"},
			{"Make_ID":480,"Make_Name":"LAND ROVER","Model_ID":2,"Model_Name":"Defender"}
		]}`)
	}))
	defer vpicSrv.Close()

	src := OptionsSource{
		CarAPI: &carapi.Client{BaseURL: carapiSrv.URL, HTTP: carapiSrv.Client()},
		VPIC:   &vpic.Client{BaseURL: vpicSrv.URL, HTTP: vpicSrv.Client()},
	}
	models := src.Models(context.Background(), "Land Rover", 2021)
	assert.Equal(t, []string{"Defender", "Discovery"}, models)
}

func TestModelsStaticFallback(t *testing.T) {
	src := OptionsSource{}
	models := src.Models(context.Background(), "Tesla", 0)
	assert.Equal(t, []string{"Cybertruck", "Model 3", "Model S", "Model X", "Model Y"}, models)

	models = src.Models(context.Background(), "Yugo", 0)
	require.NotNil(t, models)
	assert.Empty(t, models)
}

func TestModelsVPICSkippedWithoutYear(t *testing.T) {
	vpicCalls := 0
	vpicSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vpicCalls++
		fmt.Fprint(w, `{"Results":[]}`)
	}))
	defer vpicSrv.Close()

	src := OptionsSource{VPIC: &vpic.Client{BaseURL: vpicSrv.URL, HTTP: vpicSrv.Client()}}
	models := src.Models(context.Background(), "Mini", 0)
	assert.Equal(t, 0, vpicCalls)
	assert.Equal(t, []string{"Clubman", "Cooper", "Countryman"}, models)
}

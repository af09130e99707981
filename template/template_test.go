package template_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
	"github.com/corvus-sh/orchd/template"
)

func TestRenderExpandsAllThreeScopes(t *testing.T) {
	data := model.TemplateData{
		Vars: map[string]string{"region": "eu"},
		Networks: map[string]model.NetworkTemplateData{
			"front": {Gateway: "172.18.0.1"},
		},
		Cargoes: map[string]model.CargoTemplateData{
			"api": {Name: "api", TargetIP: "172.18.0.5"},
		},
	}

	out, err := template.Render("{{vars.region}} {{networks.front.gateway}} {{cargoes.api.target_ip}}", data)
	require.NoError(t, err)
	require.Equal(t, "eu 172.18.0.1 172.18.0.5", out)
}

func TestRenderIsPureForTheSameContext(t *testing.T) {
	data := model.TemplateData{Vars: map[string]string{"name": "web"}}

	first, err := template.Render("service-{{vars.name}}", data)
	require.NoError(t, err)
	second, err := template.Render("service-{{vars.name}}", data)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRenderEnvValueUsesOnlyTheVarsScope(t *testing.T) {
	out, err := template.RenderEnvValue("postgres://{{vars.host}}/db", map[string]string{"host": "db.internal"})
	require.NoError(t, err)
	require.Equal(t, "postgres://db.internal/db", out)
}

func TestRenderOnMalformedTemplateIsTemplateRenderKind(t *testing.T) {
	_, err := template.Render("{{#unterminated", model.TemplateData{})
	require.Error(t, err)
	require.Equal(t, corvuserr.TemplateRender, corvuserr.KindOf(err))
}

func TestSplitDNSEntryRoundTrips(t *testing.T) {
	ip, fqdn, err := template.SplitDNSEntry("10.0.0.5:api.local")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", ip)
	require.Equal(t, "api.local", fqdn)
}

func TestSplitDNSEntryRejectsMalformedInput(t *testing.T) {
	_, _, err := template.SplitDNSEntry("not-an-entry")
	require.Error(t, err)

	_, _, err = template.SplitDNSEntry("10.0.0.5:")
	require.Error(t, err)
}

func TestUpsertDNSEntryAppendsWhenAbsent(t *testing.T) {
	out := template.UpsertDNSEntry(nil, "10.0.0.5", "api.local")
	require.Equal(t, "address=/.api.local/10.0.0.5\n", string(out))
}

func TestUpsertDNSEntryReplacesInPlacePreservingOrder(t *testing.T) {
	existing := []byte("address=/.db.local/10.0.0.1\naddress=/.api.local/10.0.0.5\naddress=/.cache.local/10.0.0.9\n")

	out := template.UpsertDNSEntry(existing, "10.0.0.6", "api.local")

	require.Equal(t,
		"address=/.db.local/10.0.0.1\naddress=/.api.local/10.0.0.6\naddress=/.cache.local/10.0.0.9\n",
		string(out))
}

func TestUpsertDNSEntryIsIdempotentWhenReapplyingTheSameMapping(t *testing.T) {
	out := template.UpsertDNSEntry(nil, "10.0.0.5", "api.local")
	out = template.UpsertDNSEntry(out, "10.0.0.5", "api.local")
	require.Equal(t, "address=/.api.local/10.0.0.5\n", string(out))
}

func TestUpsertDNSEntrySecondWriteWithNewIPWinsOverFirst(t *testing.T) {
	out := template.UpsertDNSEntry(nil, "10.0.0.5", "api.local")
	out = template.UpsertDNSEntry(out, "10.0.0.6", "api.local")
	require.Equal(t, "address=/.api.local/10.0.0.6\n", string(out))
}

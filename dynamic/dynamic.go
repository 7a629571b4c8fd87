package dynamic

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/dynamic"
	"github.com/tidwall/gjson"
)

// Tunnel response prefixes with special meaning.
const (
	redirectHTTP  = "http://"
	redirectHTTPS = "https://"
	errorScheme   = "error://"
)

type Dynamic struct {
	*Options
	meta *MetaGenerator
}

func NewDynamic(opts ...Option) *Dynamic {
	d := &Dynamic{
		Options: NewOptions(opts...),
	}
	d.meta = NewMetaGenerator(d.LocalWarehouse, d.RemoteWarehouse)

	d.InstallPackages()

	return d
}

func (d *Dynamic) InstallPackages() {
	if d.Os != "" {
		dynamic.DynamicOS = d.Os
	}
	if d.Arch != "" {
		dynamic.DynamicArch = d.Arch
	}
	if d.Compiler != "" {
		dynamic.DynamicCompiler = d.Compiler
	}
	if d.Variant != "" {
		dynamic.DynamicVariant = d.Variant
	}

	if d.LocalWarehouse != "" || d.RemoteWarehouse != "" {
		dynamic.UseWarehouse(d.LocalWarehouse, d.RemoteWarehouse)
	}

	if d.PackageNamespace != "" {
		dynamic.UseNamespace(d.PackageNamespace)
	}

	if d.PackageDefaultVersion != "" {
		dynamic.UseDefaultVersion(d.PackageDefaultVersion)
	}

	for _, p := range d.StaticPackages {
		dynamic.RegisterPackage(p.Package, p.Version, p.Tunnel)
	}

	for _, p := range d.PreloadPackages {
		if _, err := dynamic.GetPackage(p.Package, p.Version); err != nil {
			log.Printf("[Dynamic] preload package %s_%s_%s failed: %v", d.PackageNamespace, p.Package, p.Version, err)
		}
	}
}

func (d *Dynamic) GetPackage(pkg string, version string) (dynamic.Tunnel, error) {
	return dynamic.GetPackage(pkg, version)
}

// Handler serves <APIPrefix>/<pkg>/<version>/<route> by invoking the tunnel
// and <MetaPrefix>/<pkg>/<version> with the package meta. Other paths fall
// through with Next.
//
// A tunnel response starting with http:// or https:// becomes a 307
// redirect, one starting with error:// a failure. JSON responses are
// decoded so the adapters re-encode them as JSON.
func (d *Dynamic) Handler() chain.HandlerFunc {
	apiPattern := strings.TrimRight(d.APIPrefix, "/") + "/*path"
	metaPattern := strings.TrimRight(d.MetaPrefix, "/") + "/*path"

	return func(c *chain.Context, _ chain.Result) chain.Outcome {
		if param, ok := chain.MatchPattern(apiPattern, c.Path()); ok {
			return d.api(c, param)
		}
		if param, ok := chain.MatchPattern(metaPattern, c.Path()); ok {
			return d.metaInfo(param)
		}
		return chain.Next()
	}
}

func (d *Dynamic) api(c *chain.Context, param string) chain.Outcome {
	pkg, version, route, ok := splitPackagePath(param)
	if !ok {
		return c.Throw(http.StatusBadRequest, fmt.Sprintf("invalid package path: %q", param))
	}

	tunnel, err := d.GetPackage(pkg, version)
	if err != nil {
		if d.DebugMode {
			log.Printf("[Dynamic] get package %s/%s: %v", pkg, version, err)
		}
		return c.Throw(http.StatusNotFound, fmt.Sprintf("package not found: %s/%s", pkg, version))
	}

	req, err := request(c)
	if err != nil {
		return chain.Fail(err)
	}

	rsp := tunnel.Invoke(route, req)
	if d.DebugMode {
		log.Printf("[Dynamic] %s/%s%s: %s -> %s", pkg, version, route, req, rsp)
	}

	switch {
	case strings.HasPrefix(rsp, redirectHTTP), strings.HasPrefix(rsp, redirectHTTPS):
		c.SetStatus(http.StatusTemporaryRedirect)
		c.SetHeader("Location", rsp)
		c.SetBody(nil)
		return chain.Stop()
	case strings.HasPrefix(rsp, errorScheme):
		return chain.Fail(errors.New(strings.TrimPrefix(rsp, errorScheme)))
	}
	return chain.Return(decode(rsp))
}

func (d *Dynamic) metaInfo(param string) chain.Outcome {
	var tunnelMeta string
	if pkg, version, _, ok := splitPackagePath(param); ok {
		if tunnel, err := d.GetPackage(pkg, version); err == nil {
			tunnelMeta = tunnel.Meta()
		}
	}
	return chain.Return(decode(d.meta.Generate(tunnelMeta)))
}

// splitPackagePath splits /pkg/version/route... into its parts. The route
// keeps its leading slash and is "/" when absent.
func splitPackagePath(p string) (pkg, version, route string, ok bool) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], "/" + strings.Join(parts[2:], "/"), true
}

// request renders the tunnel request: the raw body when the event carried
// a non-JSON body, else the body mapping, else the query mapping.
func request(c *chain.Context) (string, error) {
	r := c.Request()
	if r.RawBody != "" {
		return r.RawBody, nil
	}
	m := r.Body.Map()
	if len(m) == 0 {
		m = r.Query.Map()
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("dynamic: encode request: %w", err)
	}
	return string(b), nil
}

func decode(rsp string) any {
	if res := gjson.Parse(rsp); gjson.Valid(rsp) && (res.IsObject() || res.IsArray()) {
		return res.Value()
	}
	return rsp
}

package dynamic

import (
	"encoding/json"
	"os"
	"runtime/debug"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ServiceInfo is parsed from AWS_LAMBDA_FUNCTION_NAME, laid out as
// business-framework-runtime-resource-instance.
type ServiceInfo struct {
	Business  string `json:"business"`
	Framework string `json:"framework"`
	Runtime   string `json:"runtime"`
	Resource  string `json:"resource"`
	Instance  string `json:"instance"`
}

type BuildInfo struct {
	Module  string `json:"module"`
	Version string `json:"version"`
	Built   string `json:"built"`
}

type WarehouseInfo struct {
	Local  string `json:"local"`
	Remote string `json:"remote"`
}

type Meta struct {
	Service   ServiceInfo   `json:"service"`
	Build     BuildInfo     `json:"build"`
	Warehouse WarehouseInfo `json:"warehouse"`
}

type MetaGenerator struct {
	localWarehouse  string
	remoteWarehouse string
}

func NewMetaGenerator(localWarehouse, remoteWarehouse string) *MetaGenerator {
	return &MetaGenerator{
		localWarehouse:  localWarehouse,
		remoteWarehouse: remoteWarehouse,
	}
}

func parseServiceInfo(funcName string) ServiceInfo {
	var fields [5]string
	copy(fields[:], strings.SplitN(funcName, "-", 5))
	return ServiceInfo{
		Business:  fields[0],
		Framework: fields[1],
		Runtime:   fields[2],
		Resource:  fields[3],
		Instance:  fields[4],
	}
}

func parseBuildInfo() BuildInfo {
	info := BuildInfo{}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.Module = buildInfo.Main.Path
	info.Version = buildInfo.Main.Version
	for _, setting := range buildInfo.Settings {
		if setting.Key == "vcs.time" {
			info.Built = setting.Value
			break
		}
	}
	return info
}

// Generate returns the meta document as JSON. Top-level keys of tunnelMeta
// are added when they do not collide with the generated ones.
func (g *MetaGenerator) Generate(tunnelMeta string) string {
	meta := Meta{
		Service: parseServiceInfo(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")),
		Build:   parseBuildInfo(),
		Warehouse: WarehouseInfo{
			Local:  g.localWarehouse,
			Remote: g.remoteWarehouse,
		},
	}

	result, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}

	extra := gjson.Parse(tunnelMeta)
	if !gjson.Valid(tunnelMeta) || !extra.IsObject() {
		return string(result)
	}

	existing := make(map[string]bool)
	gjson.ParseBytes(result).ForEach(func(k, _ gjson.Result) bool {
		existing[k.String()] = true
		return true
	})

	merged := result
	extra.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if existing[key] {
			return true
		}
		if out, err := sjson.SetRawBytes(merged, escapePath(key), []byte(v.Raw)); err == nil {
			merged = out
		}
		return true
	})
	return string(merged)
}

func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`.*?|#@\:`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

package plugins

import (
	"encoding/json"

	"github.com/andrei-cloud/go_draconis/pkg/plugin"
	"github.com/andrei-cloud/go_draconis/pkg/plugin/wasmguest"
	"github.com/rs/zerolog/log"
)

// wasmPlugin proxies plugin.Plugin calls to a guest instance handle.
type wasmPlugin struct {
	lib    *wasmLibrary
	handle uint32
	meta   plugin.Metadata
}

func (p *wasmPlugin) Metadata() plugin.Metadata {
	return p.meta
}

func (p *wasmPlugin) Initialize(c plugin.Cache) error {
	p.lib.loader.host.Bind(p.lib.module.Name(), c)

	return p.lib.call(wasmguest.ExportInitialize, nil, uint64(p.handle))
}

func (p *wasmPlugin) Shutdown() {
	if _, err := p.lib.callRaw(wasmguest.ExportShutdown, uint64(p.handle)); err != nil {
		p.warn(err, wasmguest.ExportShutdown)
	}
}

func (p *wasmPlugin) IsReady() bool {
	res, err := p.lib.callRaw(wasmguest.ExportIsReady, uint64(p.handle))
	if err != nil {
		p.warn(err, wasmguest.ExportIsReady)
		return false
	}

	return len(res) > 0 && uint32(res[0]) != 0
}

func (p *wasmPlugin) warn(err error, export string) {
	log.Warn().Err(err).Str("plugin", p.meta.Name).Str("export", export).Msg("wasm plugin call failed")
}

// baseOf returns the proxy behind any wasm plugin value.
func baseOf(p plugin.Plugin) *wasmPlugin {
	switch v := p.(type) {
	case *wasmPlugin:
		return v
	case *wasmInfoPlugin:
		return v.wasmPlugin
	case *wasmFormatPlugin:
		return v.wasmPlugin
	default:
		return nil
	}
}

// wasmInfoPlugin is a wasmPlugin declared as an info provider.
type wasmInfoPlugin struct {
	*wasmPlugin
}

func (p *wasmInfoPlugin) CollectInfo(c plugin.Cache) (map[string]string, error) {
	p.lib.loader.host.Bind(p.lib.module.Name(), c)

	var fields map[string]string
	if err := p.lib.call(wasmguest.ExportCollectInfo, &fields, uint64(p.handle)); err != nil {
		return nil, err
	}

	return fields, nil
}

func (p *wasmInfoPlugin) FieldNames() []string {
	var names []string
	if err := p.lib.call(wasmguest.ExportFieldNames, &names, uint64(p.handle)); err != nil {
		p.warn(err, wasmguest.ExportFieldNames)
	}

	return names
}

// wasmFormatPlugin is a wasmPlugin declared as an output formatter.
type wasmFormatPlugin struct {
	*wasmPlugin
}

func (p *wasmFormatPlugin) FormatOutput(format string, data map[string]string) (string, error) {
	req, err := json.Marshal(wasmguest.FormatRequest{Format: format, Data: data})
	if err != nil {
		return "", err
	}

	var out string
	if err := p.lib.callWithInput(wasmguest.ExportFormatOutput, p.handle, req, &out); err != nil {
		return "", err
	}

	return out, nil
}

func (p *wasmFormatPlugin) FormatNames() []string {
	var names []string
	if err := p.lib.call(wasmguest.ExportFormatNames, &names, uint64(p.handle)); err != nil {
		p.warn(err, wasmguest.ExportFormatNames)
	}

	return names
}

func (p *wasmFormatPlugin) FileExtension(format string) string {
	var ext string
	if err := p.lib.callWithInput(wasmguest.ExportFileExtension, p.handle, []byte(format), &ext); err != nil {
		p.warn(err, wasmguest.ExportFileExtension)
	}

	return ext
}

//go:build wasip1

package main

import "github.com/andrei-cloud/go_draconis/pkg/plugin/wasmguest"

func init() {
	wasmguest.SetFactory(newCSVFormat, nil)
}

//export CreatePlugin
func CreatePlugin() uint32 { return wasmguest.Create() }

//export DestroyPlugin
func DestroyPlugin(h uint32) { wasmguest.Destroy(h) }

//export Alloc
func Alloc(size uint32) uint32 { return wasmguest.Alloc(size) }

//export Free
func Free(ptr uint32) { wasmguest.Free(ptr) }

//export plugin_metadata
func pluginMetadata(h uint32) uint64 { return wasmguest.Metadata(h) }

//export plugin_initialize
func pluginInitialize(h uint32) uint64 {
	wasmguest.Log("csvformat: initialize")

	return wasmguest.Initialize(h)
}

//export plugin_is_ready
func pluginIsReady(h uint32) uint32 { return wasmguest.IsReady(h) }

//export plugin_shutdown
func pluginShutdown(h uint32) { wasmguest.Shutdown(h) }

//export plugin_format_output
func pluginFormatOutput(h, ptr, length uint32) uint64 {
	return wasmguest.FormatOutput(h, ptr, length)
}

//export plugin_format_names
func pluginFormatNames(h uint32) uint64 { return wasmguest.FormatNames(h) }

//export plugin_file_extension
func pluginFileExtension(h, ptr, length uint32) uint64 {
	return wasmguest.FileExtension(h, ptr, length)
}

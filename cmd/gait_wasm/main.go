//go:build js && wasm

package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"syscall/js"
	"time"

	gaitnotes "gait-analyzer"
	"gait-analyzer/pipeline"
)

func main() {
	js.Global().Set("analyzeTrial", js.FuncOf(analyzeTrial))
	select {}
}

// analyzeTrial(files, options): files holds metadata, trunk, left_foot and right_foot as Uint8Arrays.
func analyzeTrial(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return failure("expected arguments: files(object), options(object)")
	}
	filesArg, optsArg := args[0], args[1]
	if filesArg.IsUndefined() || filesArg.IsNull() {
		return failure("trial files are required")
	}

	inputs := make(map[string][]byte, 4)
	for _, role := range []string{"metadata", "trunk", "left_foot", "right_foot"} {
		data, err := copyBytes(filesArg.Get(role))
		if err != nil {
			return failure(fmt.Sprintf("%s: %v", role, err))
		}
		inputs[role] = data
	}

	channels, err := gaitnotes.ParseChannelList(getString(optsArg, "channels", ""))
	if err != nil {
		return failure(err.Error())
	}

	result, err := pipeline.RunBytes(pipeline.BytesOptions{
		Code:          getString(optsArg, "code", ""),
		Metadata:      inputs["metadata"],
		Trunk:         inputs["trunk"],
		LeftFoot:      inputs["left_foot"],
		RightFoot:     inputs["right_foot"],
		Format:        getString(optsArg, "format", pipeline.FormatCSV),
		ChartFormat:   getString(optsArg, "chart_format", "svg"),
		Channels:      channels,
		SharedYLimits: getBool(optsArg, "shared_y_limits"),
		HatchUTurn:    getBool(optsArg, "hatch_uturn"),
		Overview:      getBool(optsArg, "overview"),
		FIT:           getBool(optsArg, "fit"),
		CopySources:   true,
		Analysis:      gaitnotes.DefaultConfig(),
	})
	if err != nil {
		return failure(err.Error())
	}

	zipBytes, err := zipArtifacts(result.Files)
	if err != nil {
		return failure(fmt.Sprintf("create zip: %v", err))
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	fileNames := make([]string, 0, len(result.Files))
	for name := range result.Files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	return map[string]any{
		"ok":         true,
		"code":       result.TrialCode,
		"zip":        payload,
		"trial_info": gaitnotes.BuildTrialInfo(result.Analysis.Info),
		"warnings":   stringsToAny(result.Warnings),
		"files":      stringsToAny(fileNames),
	}
}

func failure(msg string) map[string]any {
	return map[string]any{"ok": false, "error": msg}
}

func copyBytes(v js.Value) ([]byte, error) {
	if v.IsUndefined() || v.IsNull() || v.Get("length").Int() == 0 {
		return nil, fmt.Errorf("file bytes are required")
	}
	out := make([]byte, v.Get("length").Int())
	if n := js.CopyBytesToGo(out, v); n == 0 {
		return nil, fmt.Errorf("failed to read bytes from JS input")
	}
	return out, nil
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fixedTime := time.Unix(0, 0).UTC()

	for _, name := range names {
		h := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}
		h.SetModTime(fixedTime)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() {
		return fallback
	}
	s := out.String()
	if s == "" || s == "undefined" || s == "null" {
		return fallback
	}
	return s
}

func getBool(v js.Value, key string) bool {
	if v.IsUndefined() || v.IsNull() {
		return false
	}
	out := v.Get(key)
	return out.Type() == js.TypeBoolean && out.Bool()
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

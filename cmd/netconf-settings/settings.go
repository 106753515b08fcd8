package main

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/settings-sdk/pkg/extension"
	"github.com/mesh-intelligence/settings-sdk/pkg/migrate"
	"github.com/mesh-intelligence/settings-sdk/pkg/model"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

const extensionName = "netconf"

// MTU bounds shared by every version.
const (
	minMTU     = 576
	maxMTU     = 9216
	defaultMTU = 1500
)

const (
	modeAuto   = "auto"
	modeManual = "manual"
)

var errDowngrade = errors.New("cannot downgrade")

type settingsV1 struct {
	MTU int `json:"mtu"`
}

type settingsV2 struct {
	MTU  int    `json:"mtu"`
	Mode string `json:"mode"`
}

type iface struct {
	Name string `json:"name"`
	MTU  *int   `json:"mtu,omitempty"`
}

type settingsV3 struct {
	MTU        int     `json:"mtu"`
	Mode       string  `json:"mode"`
	Interfaces []iface `json:"interfaces"`
}

func mtuField() model.Field {
	return model.Required("mtu", model.Int()).WithDefault(value.Int(defaultMTU)).Range(minMTU, maxMTU)
}

func modeField() model.Field {
	return model.Required("mode", model.String()).WithDefault(value.String(modeAuto)).OneOf(modeAuto, modeManual)
}

var (
	modelV1 = model.MustNew("v1", model.Object(mtuField()))

	modelV2 = model.MustNew("v2", model.Object(mtuField(), modeField()),
		model.WithHelper("describe", describe),
	)

	modelV3 = model.MustNew("v3", model.Object(
		mtuField(),
		modeField(),
		model.Required("interfaces", model.ListOf(model.Object(
			model.Required("name", model.String()),
			model.Optional("mtu", model.Int()).Range(minMTU, maxMTU),
		))).WithDefault(value.Sequence()),
	),
		model.WithInvariant("unique_interface_names", uniqueInterfaceNames),
		model.WithInvariant("interface_mtu_within_link", interfaceMTUWithinLink),
		model.WithGenerator(generateV3),
		model.WithHelper("describe", describe),
		model.WithHelper("interface_names", interfaceNames),
	)
)

// newExtension assembles the netconf extension.
func newExtension() *extension.Extension {
	return extension.New(extensionName).
		WithModels(modelV1, modelV2, modelV3).
		WithMigrator("v1", "v2", migrate.Typed(upgradeV1)).
		WithMigrator("v2", "v1", migrate.Typed(downgradeV2)).
		WithMigrator("v2", "v3", migrate.Typed(upgradeV2)).
		WithMigrator("v3", "v2", migrate.Typed(downgradeV3)).
		RequireConnected().
		MustBuild()
}

func upgradeV1(in settingsV1) (settingsV2, error) {
	return settingsV2{MTU: in.MTU, Mode: modeAuto}, nil
}

func downgradeV2(in settingsV2) (settingsV1, error) {
	if in.Mode != modeAuto {
		return settingsV1{}, fmt.Errorf("%w: mode %q has no v1 equivalent", errDowngrade, in.Mode)
	}
	return settingsV1{MTU: in.MTU}, nil
}

func upgradeV2(in settingsV2) (settingsV3, error) {
	return settingsV3{MTU: in.MTU, Mode: in.Mode, Interfaces: []iface{}}, nil
}

func downgradeV3(in settingsV3) (settingsV2, error) {
	if len(in.Interfaces) > 0 {
		return settingsV2{}, fmt.Errorf("%w: %d interfaces have no v2 equivalent", errDowngrade, len(in.Interfaces))
	}
	return settingsV2{MTU: in.MTU, Mode: in.Mode}, nil
}

func uniqueInterfaceNames(doc model.Document, _ value.Value) []types.Violation {
	var s settingsV3
	if err := doc.Bind(&s); err != nil {
		return []types.Violation{{Path: ".interfaces", Message: err.Error()}}
	}
	var out []types.Violation
	seen := make(map[string]int, len(s.Interfaces))
	for i, ifc := range s.Interfaces {
		if first, ok := seen[ifc.Name]; ok {
			out = append(out, types.Violation{
				Path:    value.Path{}.Key("interfaces").Index(i).Key("name").String(),
				Message: fmt.Sprintf("duplicate interface %q, first at index %d", ifc.Name, first),
			})
			continue
		}
		seen[ifc.Name] = i
	}
	return out
}

func interfaceMTUWithinLink(doc model.Document, _ value.Value) []types.Violation {
	var s settingsV3
	if err := doc.Bind(&s); err != nil {
		return nil
	}
	var out []types.Violation
	for i, ifc := range s.Interfaces {
		if ifc.MTU != nil && *ifc.MTU > s.MTU {
			out = append(out, types.Violation{
				Path:    value.Path{}.Key("interfaces").Index(i).Key("mtu").String(),
				Message: fmt.Sprintf("%d exceeds link mtu %d", *ifc.MTU, s.MTU),
			})
		}
	}
	return out
}

// generateV3 fills defaults and, when the related settings name a primary
// interface, adds it if no interfaces are configured yet. The result is
// partial while any interface still lacks a name.
func generateV3(existing, related value.Value) (model.Generated, error) {
	tree := value.Object(
		"mtu", defaultMTU,
		"mode", modeAuto,
		"interfaces", value.Sequence(),
	)
	if !existing.IsNull() {
		tree = value.Merge(tree, existing)
	}

	ifaces, _ := tree.Field("interfaces")
	if ifaces.Len() == 0 {
		if primary, ok := related.Field("primary_interface"); ok {
			if name, ok := primary.AsString(); ok && name != "" {
				tree = tree.With("interfaces", value.Sequence(value.Object("name", name)))
			}
		}
		return model.Generated{Value: tree, Complete: true}, nil
	}

	for _, ifc := range ifaces.Items() {
		if _, ok := ifc.Field("name"); !ok {
			return model.Generated{Value: tree}, nil
		}
	}
	return model.Generated{Value: tree, Complete: true}, nil
}

func describe(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, errors.New("describe takes the settings as its only argument")
	}
	mtu, _ := args[0].Field("mtu")
	n, _ := mtu.AsInt()
	size := "standard"
	if n > defaultMTU {
		size = "jumbo"
	}
	mode, _ := args[0].Field("mode")
	m, _ := mode.AsString()
	if m == "" {
		m = modeAuto
	}
	return value.String(fmt.Sprintf("%s frames, %s configuration", size, m)), nil
}

func interfaceNames(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, errors.New("interface_names takes the settings as its only argument")
	}
	ifaces, ok := args[0].Field("interfaces")
	if !ok {
		return value.Sequence(), nil
	}
	names := make([]value.Value, 0, ifaces.Len())
	for _, ifc := range ifaces.Items() {
		if name, ok := ifc.Field("name"); ok {
			names = append(names, name)
		}
	}
	return value.Sequence(names...), nil
}

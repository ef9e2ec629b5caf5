package registry

import "testing"

func sampleTool(name string) ToolDefinition {
	return ToolDefinition{
		Name:        name,
		Description: "does things",
		InputSchema: map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
	}
}

func TestInstallFileThenLookup(t *testing.T) {
	reg := New(nil, ConflictReject)
	err := reg.InstallFile("a.yaml", &CapabilityFile{
		Metadata: CapabilityFileMetadata{Name: "a"},
		Tools:    []ToolDefinition{sampleTool("ping_host")},
	})
	if err != nil {
		t.Fatalf("InstallFile: %v", err)
	}

	snap := reg.Snapshot()
	tool, ok := snap.Lookup("ping_host")
	if !ok {
		t.Fatal("expected ping_host to be registered")
	}
	if tool.SourceID != "a.yaml" || tool.SourceKind != "file" {
		t.Fatalf("unexpected source: %+v", tool)
	}
	if !tool.Enabled {
		t.Fatal("expected newly installed tool to default Enabled=true")
	}
}

func TestConflictReject(t *testing.T) {
	reg := New(nil, ConflictReject)
	reg.InstallFile("a.yaml", &CapabilityFile{Metadata: CapabilityFileMetadata{Name: "a"}, Tools: []ToolDefinition{sampleTool("ping_host")}})

	err := reg.InstallFile("b.yaml", &CapabilityFile{Metadata: CapabilityFileMetadata{Name: "b"}, Tools: []ToolDefinition{sampleTool("ping_host")}})
	if err == nil {
		t.Fatal("expected conflicting install to be rejected")
	}
}

func TestExternalRediscoveryPreservesUserFlagsOnUnchangedHash(t *testing.T) {
	reg := New(nil, ConflictReject)
	if err := reg.InstallExternal("srv1", []ToolDefinition{sampleTool("tcp_probe")}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := reg.SetUserFlags("tcp_probe", true, true); err != nil {
		t.Fatalf("SetUserFlags: %v", err)
	}

	// Rediscovery with identical content should preserve Hidden=true.
	if err := reg.InstallExternal("srv1", []ToolDefinition{sampleTool("tcp_probe")}); err != nil {
		t.Fatalf("reinstall: %v", err)
	}

	tool, ok := reg.Snapshot().Lookup("tcp_probe")
	if !ok {
		t.Fatal("expected tcp_probe to still be registered")
	}
	if !tool.Hidden {
		t.Fatal("expected Hidden=true to survive a content-identical rediscovery")
	}
}

func TestExternalRediscoveryResetsFlagsOnChangedHash(t *testing.T) {
	reg := New(nil, ConflictReject)
	reg.InstallExternal("srv1", []ToolDefinition{sampleTool("tcp_probe")})
	reg.SetUserFlags("tcp_probe", true, true)

	changed := sampleTool("tcp_probe")
	changed.Description = "a materially different description"
	if err := reg.InstallExternal("srv1", []ToolDefinition{changed}); err != nil {
		t.Fatalf("reinstall: %v", err)
	}

	tool, _ := reg.Snapshot().Lookup("tcp_probe")
	if tool.Hidden {
		t.Fatal("expected a changed content hash to NOT preserve the stale Hidden flag")
	}
}

func TestRemoveSource(t *testing.T) {
	reg := New(nil, ConflictReject)
	reg.InstallFile("a.yaml", &CapabilityFile{Metadata: CapabilityFileMetadata{Name: "a"}, Tools: []ToolDefinition{sampleTool("x"), sampleTool("y")}})
	reg.RemoveSource("a.yaml")

	if len(reg.Snapshot().List()) != 0 {
		t.Fatalf("expected source removal to drop all its tools, got %+v", reg.Snapshot().List())
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	reg := New(nil, ConflictReject)
	reg.InstallFile("a.yaml", &CapabilityFile{
		Metadata: CapabilityFileMetadata{Name: "a"},
		Tools:    []ToolDefinition{sampleTool("zzz"), sampleTool("aaa")},
	})

	list := reg.Snapshot().List()
	if len(list) != 2 || list[0].Name != "zzz" || list[1].Name != "aaa" {
		t.Fatalf("expected insertion order zzz,aaa, got %+v", list)
	}
}

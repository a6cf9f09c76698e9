package tools

// BuildDefaultRegistry returns a registry carrying the full concrete tool
// set: read_file, write_file, shell, grep, glob, and either apply_patch or
// edit_file depending on includeApplyPatch.
func BuildDefaultRegistry(includeApplyPatch bool) *Registry {
	registry := NewRegistry()
	registry.Register(ReadFileTool())
	registry.Register(WriteFileTool())
	registry.Register(ShellTool())
	registry.Register(GrepTool())
	registry.Register(GlobTool())
	if includeApplyPatch {
		registry.Register(ApplyPatchTool())
	} else {
		registry.Register(EditFileTool())
	}
	return registry
}

package discovery

import (
	"fmt"

	"github.com/farkelheizen/brimley/internal/model"
)

// parseSQLFunction parses a .sql file's frontmatter + body into a
// SQLFunction. meta is the already-decoded YAML frontmatter map.
func parseSQLFunction(meta map[string]any, body, relPath string) (model.SQLFunction, error) {
	common, err := parseCommonFields(meta, relPath, "sql")
	if err != nil {
		return model.SQLFunction{}, err
	}
	connection := optionalString(meta, "connection")
	if connection == "" {
		connection = "default"
	}
	return model.SQLFunction{
		Common:     common,
		Connection: connection,
		SQLBody:    body,
	}, nil
}

func parseCommonFields(meta map[string]any, relPath, kind string) (model.Common, error) {
	name, ok := meta["name"].(string)
	if !ok || name == "" {
		return model.Common{}, fmt.Errorf("frontmatter is missing required \"name\"")
	}
	returnShapeRaw, ok := meta["return_shape"]
	if !ok {
		return model.Common{}, fmt.Errorf("frontmatter is missing required \"return_shape\"")
	}
	returnShape, err := decodeReturnShape(returnShapeRaw)
	if err != nil {
		return model.Common{}, err
	}
	args, err := decodeArguments(meta["arguments"])
	if err != nil {
		return model.Common{}, err
	}
	mcp, err := decodeMCP(meta["mcp"])
	if err != nil {
		return model.Common{}, err
	}
	symbol := name
	return model.Common{
		Name:           name,
		CanonicalID:    model.BuildCanonicalID(kind, relPath, symbol),
		SourcePath:     relPath,
		Description:    optionalString(meta, "description"),
		Arguments:      args,
		ReturnShape:    returnShape,
		MCP:            mcp,
		TimeoutSeconds: optionalFloat(meta["timeout_seconds"]),
	}, nil
}

package discovery

import "errors"

var errUnterminatedFrontmatter = errors.New("unterminated frontmatter block")

package header

import (
	"bytes"
	"text/template"

	"github.com/iancoleman/strcase"
)

type skeletonTemplateData struct {
	Guard  string
	Macros Macros
}

var skeletonTemplate = template.Must(template.New("header").Parse(`/*
 * Version number of this project.  Generated from the git tag by tagsync.
 *
 */

#ifndef {{.Guard}}
#define {{.Guard}}


/*--------------------------------------------------------------------------------------------------
*
* Version number.
*
* Major number is updated only after a major change.
* Minor number is updated when backwards incompatible changes are made.
* Patch number is updated when backwards compatible changes are made.
*
*-------------------------------------------------------------------------------------------------*/
#define {{.Macros.Major}} 0
#define {{.Macros.Minor}} 0
#define {{.Macros.Patch}} 0


#endif // {{.Guard}}
`))

// IncludeGuard derives the include guard macro for a project name,
// e.g. "pwm" -> "PWM_VERSION_INCLUDE_GUARD".
func IncludeGuard(project string) string {
	name := strcase.ToScreamingSnake(project)
	if name == "" {
		return "VERSION_INCLUDE_GUARD"
	}
	return name + "_VERSION_INCLUDE_GUARD"
}

// Skeleton renders a new version header for project with all macros set to 0.
func Skeleton(project string, macros Macros) ([]byte, error) {
	var buf bytes.Buffer
	err := skeletonTemplate.Execute(&buf, skeletonTemplateData{
		Guard:  IncludeGuard(project),
		Macros: macros,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

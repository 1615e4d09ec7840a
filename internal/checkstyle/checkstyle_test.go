package checkstyle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<checkstyle version="10.12.4">
<file name="src/Main.java">
<error line="3" column="5" severity="error" message="Missing a Javadoc comment." source="com.puppycrawl.tools.checkstyle.checks.javadoc.MissingJavadocMethodCheck"/>
<error line="17" severity="warning" message="Line is longer than 120 characters." source="com.puppycrawl.tools.checkstyle.checks.sizes.LineLengthCheck"/>
</file>
<file name="src/Util.java">
<error line="1" severity="info" message="File does not end with a newline." source="com.puppycrawl.tools.checkstyle.checks.NewlineAtEndOfFileCheck"/>
</file>
<file name="src/Empty.java"/>
</checkstyle>`

func TestParseXML(t *testing.T) {
	res, err := ParseXML([]byte(sampleXML))
	require.NoError(t, err)

	assert.Equal(t, "10.12.4", res.Version)
	require.Len(t, res.Files, 3)
	assert.Equal(t, "src/Main.java", res.Files[0].Name)
	require.Len(t, res.Files[0].Violations, 2)

	v := res.Files[0].Violations[0]
	assert.Equal(t, 3, v.Line)
	assert.Equal(t, 5, v.Column)
	assert.Equal(t, SeverityError, v.Severity)
	assert.Equal(t, "MissingJavadocMethodCheck", v.Rule())

	errs, warns, infos := res.Counts()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, warns)
	assert.Equal(t, 1, infos)
	assert.Equal(t, 3, res.TotalViolations())
}

func TestParseXMLInvalid(t *testing.T) {
	_, err := ParseXML([]byte("Exception in thread main"))
	require.Error(t, err)
}

func TestRuleWithoutPackage(t *testing.T) {
	v := Violation{Source: "LineLength"}
	assert.Equal(t, "LineLength", v.Rule())
}

package runner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/CZERTAINLY/golinter/internal/model"
)

// optional "prefix: ", file (with optional windows drive), line, optional column,
// optional "category:" and the message
var lineRx = regexp.MustCompile(`^([^:]*: )?((.:)?[^:]*):(\d+)(:(\d+)?)?:(?:(\w+):)? (.*)$`)

// Parse converts tool output into findings. Relative file names are resolved
// against dir, results from vendor directories are dropped and lines starting
// with a tab continue the message of the previous finding.
func Parse(out, dir string, severity model.Severity) []model.Finding {
	var ret []model.Finding
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "\t") && len(ret) > 0 {
			ret[len(ret)-1].Message += "\n" + line
			continue
		}
		m := lineRx.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		file, category, msg := m[2], m[7], m[8]
		if !filepath.IsAbs(file) && isVendored(file) {
			continue
		}
		lineNo, err := strconv.Atoi(m[4])
		if err != nil {
			continue
		}
		col, _ := strconv.Atoi(m[6])
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}

		sev := severity
		switch model.Severity(category) {
		case model.SeverityError, model.SeverityWarning:
			sev = model.Severity(category)
		}
		ret = append(ret, model.Finding{
			File:     file,
			Line:     lineNo,
			Column:   col,
			Severity: sev,
			Message:  msg,
		})
	}
	return ret
}

func isVendored(file string) bool {
	sep := string(filepath.Separator)
	return strings.HasPrefix(file, "vendor"+sep) || strings.Contains(file, sep+"vendor"+sep)
}

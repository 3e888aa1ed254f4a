package httpserver

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/valyala/fastjson"

	"github.com/ccollicutt/logdoctor/internal/apperr"
	"github.com/ccollicutt/logdoctor/internal/pipeline"
	"github.com/ccollicutt/logdoctor/pkg/explain"
	"github.com/ccollicutt/logdoctor/pkg/parser"
)

// requestFileName names the input of a {"text": ...} request.
const requestFileName = "request"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, apperr.New(apperr.CodeInputTooLarge, "request body too large", err))
			return
		}
		s.fail(c, apperr.New(apperr.CodeInvalidInput, "failed to read body", err))
		return
	}

	p := s.parser.Get()
	defer s.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		s.fail(c, apperr.New(apperr.CodeInvalidInput, "invalid JSON body", err))
		return
	}
	files, err := requestFiles(v)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts, err := requestOptions(v.Get("options"), pipeline.OptionsFromConfig(s.cfg.Analysis))
	if err != nil {
		s.fail(c, err)
		return
	}

	report, err := s.runner.Run(c.Request.Context(), files, opts, "")
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// requestFiles accepts either {"text": "..."} or
// {"files": [{"name": "...", "content": "..."}]}.
func requestFiles(v *fastjson.Value) ([]parser.InputFile, error) {
	if v.Type() != fastjson.TypeObject {
		return nil, apperr.New(apperr.CodeInvalidInput, "body must be a JSON object", nil)
	}

	if fv := v.Get("files"); fv != nil {
		arr, err := fv.Array()
		if err != nil {
			return nil, apperr.New(apperr.CodeInvalidInput, "files must be an array", err)
		}
		if len(arr) == 0 {
			return nil, apperr.New(apperr.CodeInvalidInput, "files must not be empty", nil)
		}
		files := make([]parser.InputFile, 0, len(arr))
		for _, f := range arr {
			content := f.Get("content")
			if content == nil || content.Type() != fastjson.TypeString {
				return nil, apperr.New(apperr.CodeInvalidInput, "every file needs a string content", nil)
			}
			name := string(f.GetStringBytes("name"))
			if name == "" {
				name = requestFileName
			}
			files = append(files, parser.InputFile{Name: name, Content: string(content.GetStringBytes())})
		}
		return files, nil
	}

	tv := v.Get("text")
	if tv == nil || tv.Type() != fastjson.TypeString {
		return nil, apperr.New(apperr.CodeInvalidInput, "body needs a text string or a files array", nil)
	}
	return []parser.InputFile{{Name: requestFileName, Content: string(tv.GetStringBytes())}}, nil
}

// requestOptions overlays the fields present in ov onto defaults.
func requestOptions(ov *fastjson.Value, defaults pipeline.Options) (pipeline.Options, error) {
	opts := defaults
	if ov == nil {
		return opts, nil
	}
	if ov.Type() != fastjson.TypeObject {
		return opts, apperr.New(apperr.CodeInvalidInput, "options must be an object", nil)
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"include_debug", &opts.IncludeDebug},
		{"include_trace", &opts.IncludeTrace},
		{"noise_filter", &opts.NoiseFilter},
	}
	for _, b := range bools {
		if f := ov.Get(b.key); f != nil {
			val, err := f.Bool()
			if err != nil {
				return opts, apperr.New(apperr.CodeInvalidInput, "options."+b.key+" must be a boolean", err)
			}
			*b.dst = val
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"from", &opts.From},
		{"to", &opts.To},
		{"timezone_offset", &opts.TimezoneOffset},
	}
	for _, sv := range strs {
		if f := ov.Get(sv.key); f != nil {
			val, err := f.StringBytes()
			if err != nil {
				return opts, apperr.New(apperr.CodeInvalidInput, "options."+sv.key+" must be a string", err)
			}
			*sv.dst = string(val)
		}
	}
	return opts, nil
}

func (s *Server) handleExplain(c *gin.Context) {
	var req struct {
		Line string `json:"line" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.New(apperr.CodeInvalidInput, "invalid JSON body or missing line field", err))
		return
	}

	exp, ok := explain.Line(req.Line)
	if !ok {
		s.fail(c, apperr.New(apperr.CodeNotFound, "no explanation available for this line", nil))
		return
	}
	c.JSON(http.StatusOK, exp)
}

type searchMatch struct {
	LineNum int    `json:"lineNum"`
	Line    string `json:"line"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
		Term string `json:"term" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.New(apperr.CodeInvalidInput, "invalid JSON body or missing text/term field", err))
		return
	}

	matches := parser.Search(req.Text, req.Term)
	out := make([]searchMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, searchMatch{LineNum: m.LineNum, Line: m.Line})
	}
	c.JSON(http.StatusOK, gin.H{
		"term":    req.Term,
		"count":   len(out),
		"matches": out,
	})
}

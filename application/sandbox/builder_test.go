package sandbox

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/application/handle"
	"github.com/reglet-dev/reglet-script/application/marshal"
	"github.com/reglet-dev/reglet-script/application/module"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/host/registry"
	"github.com/reglet-dev/reglet-script/internal/testutil"
	"github.com/reglet-dev/reglet-script/support"
	"github.com/stretchr/testify/suite"
)

type recordingSink struct {
	out testutil.Recorder
	err testutil.Recorder
}

func (s *recordingSink) Output(text string) { s.out.Listener()(text) }
func (s *recordingSink) Error(text string)  { s.err.Listener()(text) }

type BuilderTestSuite struct {
	suite.Suite
	releases atomic.Int32
	handles  *handle.TrackedHandleSet
	builder  *Builder
	sink     *recordingSink
	ctx      *Context
}

func (s *BuilderTestSuite) SetupTest() {
	s.releases.Store(0)
	reg := registry.NewRegistry()
	s.Require().NoError(reg.Register(entities.PluginDescriptor{Name: "Add"}, testutil.CountingFactory("Add", &s.releases, nil)))

	s.handles = handle.NewTrackedHandleSet(nil)
	bridge := handle.NewBridge(reg, marshal.New(), s.handles, nil)

	var err error
	s.builder, err = NewBuilder(module.NewLoader(support.FS()), bridge, WithPrelude("console"))
	s.Require().NoError(err)

	s.sink = &recordingSink{}
	s.ctx, err = s.builder.NewContext(context.Background(), s.sink, nil, false)
	s.Require().NoError(err)
}

func (s *BuilderTestSuite) run(src string) goja.Value {
	v, err := s.ctx.Runtime().RunString(src)
	s.Require().NoError(err)
	return v
}

func (s *BuilderTestSuite) TestBindingWhitelist() {
	s.Equal([]string{"create", "require", "system.write_stderr", "system.write_stdout"}, s.builder.Bindings())
	s.Equal("write_stderr,write_stdout", s.run("Object.keys(system).sort().join(',')").String())
	s.Equal("function", s.run("typeof create").String())
	s.Equal("undefined", s.run("typeof exports").String())
}

func (s *BuilderTestSuite) TestConsolePrelude() {
	s.run("console.log('x=%d', 5); console.info('info'); console.error('bad', 1)")
	s.Equal([]string{"x=5", "info"}, s.sink.out.Messages())
	s.Equal([]string{"bad 1"}, s.sink.err.Messages())
}

func (s *BuilderTestSuite) TestConsoleFormatting() {
	s.run("console.dir({a: [1, 'two'], b: null}); console.log('%j|%%|%s', {k: 1}, 'end', 'extra')")
	s.Equal([]string{`{ a: [ 1, "two" ], b: null }`, `{"k":1}|%|end extra`}, s.sink.out.Messages())
}

func (s *BuilderTestSuite) TestConsoleAssertAndTimers() {
	v := s.run("try { console.assert(1 === 2, 'mismatch %d', 3); 'passed' } catch (e) { e.name + ': ' + e.message }")
	s.Equal("AssertionError: mismatch 3", v.String())

	_, err := s.ctx.Runtime().RunString("console.timeEnd('never')")
	s.Require().Error(err)
	s.Contains(err.Error(), "No such label: never")

	s.run("console.time('t'); console.timeEnd('t')")
	s.Require().Len(s.sink.out.Messages(), 1)
	s.Regexp(`^t: \d+ms$`, s.sink.out.Messages()[0])
}

func (s *BuilderTestSuite) TestConsoleTrace() {
	s.run("function outer() { console.trace('at %d', 3) }\nouter()")
	s.Empty(s.sink.out.Messages())
	s.Require().Len(s.sink.err.Messages(), 1)
	trace := s.sink.err.Messages()[0]
	s.True(strings.HasPrefix(trace, "Trace: at 3"), trace)
	s.Contains(trace, "outer")
}

func (s *BuilderTestSuite) TestCreateAndExecute() {
	v := s.run("var h = create('Add'); h.input.a = 4; h.input.b = 5; h.execute(); h.output.sum")
	s.Equal(int64(9), v.Export())
	s.Equal(1, s.handles.Len())

	s.run("h.free()")
	s.Equal(int32(1), s.releases.Load())
}

func (s *BuilderTestSuite) TestCreateFailureIsCatchable() {
	v := s.run("try { create('Missing'); 'made' } catch (e) { String(e.message || e) }")
	s.Contains(v.String(), `plug-in "Missing" not found`)

	_, err := s.ctx.Runtime().RunString("create()")
	s.Require().Error(err)
	s.Contains(err.Error(), "plug-in name expected")
}

func (s *BuilderTestSuite) TestRequireSandboxed() {
	s.Equal("function", s.run("typeof require('util').format").String())

	v := s.run("try { require('../secret'); 'loaded' } catch (e) { 'blocked' }")
	s.Equal("blocked", v.String())
}

func (s *BuilderTestSuite) TestContextsDoNotCrossTalk() {
	other := &recordingSink{}
	c2, err := s.builder.NewContext(context.Background(), other, nil, true)
	s.Require().NoError(err)
	s.True(c2.Scoped())

	_, err = c2.Runtime().RunString("var only = 1; system.write_stdout('second')")
	s.Require().NoError(err)
	s.run("system.write_stdout('first')")

	s.Equal([]string{"first"}, s.sink.out.Messages())
	s.Equal([]string{"second"}, other.out.Messages())
	s.Equal("undefined", s.run("typeof only").String())
}

func (s *BuilderTestSuite) TestPreludeFailure() {
	reg := registry.NewRegistry()
	bridge := handle.NewBridge(reg, marshal.New(), handle.NewTrackedHandleSet(nil), nil)
	b, err := NewBuilder(module.NewLoader(support.FS()), bridge, WithPrelude("missing"))
	s.Require().NoError(err)

	_, err = b.NewContext(context.Background(), s.sink, nil, false)
	s.Require().Error(err)
	s.Contains(err.Error(), "prelude")
}

func TestBuilderTestSuite(t *testing.T) {
	suite.Run(t, new(BuilderTestSuite))
}

package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// WizardName is the registry name of the built-in plug-in that runs a
// script file as a scoped command.
const WizardName = "Script Wizard Executor"

const (
	wizardFilename = "Filename"
	wizardResult   = "Result"

	msgNoFilename  = "No Filename specified."
	msgCannotLoad  = "Unable to load script file."
	msgCannotParse = "Unable to compile script."
)

// RegisterWizard registers the wizard plug-in on reg unless a plug-in of
// that name exists.
func RegisterWizard(reg ports.PluginRegistry) error {
	if _, ok := reg.Descriptor(WizardName); ok {
		return nil
	}
	w := &wizardPlugin{}
	return reg.Register(w.Descriptor(), func() (ports.Plugin, error) {
		return &wizardPlugin{}, nil
	})
}

// wizardPlugin runs the script file named by its Filename input in a
// scoped context of the interpreter found on the execution context. The
// text of the script value is reported at 100% and stored in Result.
type wizardPlugin struct{}

func (p *wizardPlugin) Descriptor() entities.PluginDescriptor {
	return entities.PluginDescriptor{
		Name:        WizardName,
		Version:     "1.0.0",
		Description: "Runs a script file as a scoped command",
		Kind:        entities.PluginKindNative,
	}
}

func (p *wizardPlugin) InputSpecification() (*entities.ArgumentList, error) {
	list := entities.NewArgumentList()
	if err := list.Add(wizardFilename, entities.TypeFilename, entities.WithDescription("Script file to run")); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *wizardPlugin) OutputSpecification() (*entities.ArgumentList, error) {
	list := entities.NewArgumentList()
	if err := list.Add(wizardResult, entities.TypeString, entities.WithDescription("Text of the script value")); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *wizardPlugin) Execute(ctx context.Context, in, out *entities.ArgumentList, progress ports.Progress) (bool, error) {
	i, ok := FromContext(ctx)
	if !ok {
		return false, fmt.Errorf("plug-in %q must run inside an interpreter command", WizardName)
	}
	if progress == nil {
		progress = noProgress{}
	}

	name, ok := entities.ValueAs[entities.Filename](in, wizardFilename)
	if !ok || name.FullPathAndName() == "" {
		progress.UpdateProgress(msgNoFilename, 0, entities.ProgressErrors)
		return false, nil
	}
	path := name.FullPathAndName()

	src, err := os.ReadFile(path)
	if err != nil {
		progress.UpdateProgress(msgCannotLoad, 0, entities.ProgressErrors)
		return false, err
	}

	result, err := i.executeScoped(ctx, path, string(src),
		progressListener(progress, entities.ProgressNormal), nil, progress, nil, nil)
	if err != nil {
		var compileErr *errors.CompileError
		if stdErrors.As(err, &compileErr) {
			progress.UpdateProgress(msgCannotParse, 0, entities.ProgressErrors)
		}
		return false, err
	}

	if out != nil {
		if err := out.SetValue(wizardResult, result); err != nil {
			return false, err
		}
	}
	progress.UpdateProgress(result, 100, entities.ProgressNormal)
	return true, nil
}

// scriptPlugin is a plug-in implemented by a script in the support
// directory of its owning interpreter. Its argument lists are bound as
// input and output while the script runs.
type scriptPlugin struct {
	owner    *Interpreter
	manifest *entities.ScriptManifest
}

// RegisterScriptPlugin registers the plug-in m declares. Its script must be
// loadable from the support directory when the plug-in executes.
func (i *Interpreter) RegisterScriptPlugin(m *entities.ScriptManifest) error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	p := &scriptPlugin{owner: i, manifest: m}
	return i.registry.Register(p.Descriptor(), func() (ports.Plugin, error) {
		return &scriptPlugin{owner: i, manifest: m}, nil
	})
}

func (p *scriptPlugin) Descriptor() entities.PluginDescriptor {
	return entities.PluginDescriptor{
		Name:        p.manifest.Name,
		Version:     p.manifest.Version,
		Description: p.manifest.Description,
		Creator:     p.manifest.Creator,
		Kind:        entities.PluginKindScript,
	}
}

func (p *scriptPlugin) InputSpecification() (*entities.ArgumentList, error) {
	return entities.BuildArgumentList(p.manifest.Inputs)
}

func (p *scriptPlugin) OutputSpecification() (*entities.ArgumentList, error) {
	return entities.BuildArgumentList(p.manifest.Outputs)
}

func (p *scriptPlugin) Execute(ctx context.Context, in, out *entities.ArgumentList, progress ports.Progress) (bool, error) {
	i := p.owner
	if progress == nil {
		progress = noProgress{}
	}
	if !i.IsStarted() {
		return false, i.unavailable()
	}

	file, err := i.loader.Resolve(p.manifest.Script)
	if err != nil {
		return false, err
	}
	src, err := fs.ReadFile(i.supportFS, file)
	if err != nil {
		return false, &errors.ModuleLoadFailure{Module: p.manifest.Script, Err: err}
	}

	logger := i.logger.With("plugin", p.manifest.Name)
	_, err = i.executeScoped(ctx, file, string(src),
		func(text string) {
			logger.Info(text)
			progress.UpdateProgress(text, 0, entities.ProgressNormal)
		},
		func(text string) {
			logger.Warn(text)
		},
		progress, in, out)
	if err != nil {
		return false, err
	}
	return true, nil
}

func progressListener(progress ports.Progress, level entities.ProgressLevel) ports.Listener {
	return func(text string) {
		progress.UpdateProgress(text, 0, level)
	}
}

type noProgress struct{}

func (noProgress) UpdateProgress(string, int, entities.ProgressLevel) {}

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/juju/loggo"

	"github.com/jask/compass/internal/compass"
	"github.com/jask/compass/internal/database/repository"
	"github.com/jask/compass/internal/layer"
	"github.com/jask/compass/internal/service"
)

var logger = loggo.GetLogger("compass.tui")

// CreatedMessage is shown once an uploaded layer became an adversary.
const CreatedMessage = "New Adversary Created."

const recentActivity = 5

// Exporter requests a layer and delivers it as layer.json.
type Exporter interface {
	Export(ctx context.Context, adversaryID string) (service.ExportResult, error)
}

// Uploader sends an adversary layer file to the server.
type Uploader interface {
	Upload(ctx context.Context, path string) (compass.UploadResult, error)
}

// AdversarySource lists the adversaries offered in the picker.
type AdversarySource interface {
	List(ctx context.Context) ([]compass.Adversary, error)
}

// History returns recent activity, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]repository.Activity, error)
}

// Deps are the collaborators the widget drives. History may be nil.
type Deps struct {
	Exporter    Exporter
	Uploader    Uploader
	Adversaries AdversarySource
	History     History
	ServerURL   string
	UploadDir   string
}

// App is the layer export/import widget.
type App struct {
	ctx  context.Context
	deps Deps
	keys keyMap

	adversaries   []compass.Adversary
	selectedID    string
	selectedLabel string

	modal       modalState
	picker      *pickerState
	confirmText string

	status     string
	refreshing bool
	lastExport *service.ExportResult
	activity   []repository.Activity

	width  int
	height int
}

type modalState string

const (
	modalNone            modalState = ""
	modalAdversaryPicker modalState = "adversaryPicker"
	modalUploadPicker    modalState = "uploadPicker"
	modalHelp            modalState = "help"
	modalConfirm         modalState = "confirm"
)

// New builds the widget. A nil ctx means context.Background; an empty upload
// directory means the working directory.
func New(ctx context.Context, deps Deps) *App {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(deps.UploadDir) == "" {
		deps.UploadDir = "."
	}
	return &App{
		ctx:           ctx,
		deps:          deps,
		keys:          newKeyMap(),
		selectedLabel: allAdversariesLabel,
	}
}

const allAdversariesLabel = "All adversaries"

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadAdversaries(), a.loadActivity())
}

// SelectedAdversary returns the adversary id the next export is scoped to.
// Empty means all adversaries.
func (a *App) SelectedAdversary() string { return a.selectedID }

// Modal reports which modal is open, "" for none.
func (a *App) Modal() string { return string(a.modal) }

// Status is the current status line.
func (a *App) Status() string { return a.status }

// TriggerLayerExport exports the layer for the current picker value.
func (a *App) TriggerLayerExport() tea.Cmd {
	if a.deps.Exporter == nil {
		a.status = "error: export not configured"
		return nil
	}
	ctx, exp, id := a.ctx, a.deps.Exporter, a.selectedID
	a.status = "exporting layer for " + strings.ToLower(a.selectedLabel) + "..."
	return func() tea.Msg {
		res, err := exp.Export(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return exportDoneMsg{Result: res}
	}
}

// OpenAdversaryPicker shows the adversary dropdown.
func (a *App) OpenAdversaryPicker() {
	items := []pickerItem{{ID: "", Label: allAdversariesLabel}}
	for _, adv := range a.adversaries {
		label := adv.Name
		if strings.TrimSpace(label) == "" {
			label = adv.AdversaryID
		}
		items = append(items, pickerItem{ID: adv.AdversaryID, Label: label, Meta: adv.AdversaryID})
	}
	a.picker = newPicker("Layer selection", items, "")
	a.picker.Focus(a.selectedID)
	a.modal = modalAdversaryPicker
}

// OpenUploadPicker opens the file picker over the upload directory.
func (a *App) OpenUploadPicker() {
	items, err := uploadCandidates(a.deps.UploadDir)
	if err != nil {
		logger.Warningf("list %s: %v", a.deps.UploadDir, err)
		a.status = "error: " + err.Error()
	}
	a.picker = newPicker("Upload adversary layer ("+a.deps.UploadDir+")", items, "Use path")
	a.modal = modalUploadPicker
}

// OnFileSelected starts an upload for path. An empty path does nothing.
func (a *App) OnFileSelected(path string) tea.Cmd {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return a.UploadAdversaryLayer(path)
}

// UploadAdversaryLayer uploads the file at path as a new adversary.
func (a *App) UploadAdversaryLayer(path string) tea.Cmd {
	if a.deps.Uploader == nil {
		a.status = "error: upload not configured"
		return nil
	}
	ctx, up := a.ctx, a.deps.Uploader
	a.status = "uploading " + filepath.Base(path) + "..."
	return func() tea.Msg {
		res, err := up.Upload(ctx, path)
		if err != nil {
			return errMsg{err}
		}
		return uploadDoneMsg{Path: path, Result: res}
	}
}

// OpenHelp shows the help modal. Calling it again keeps it shown.
func (a *App) OpenHelp() {
	a.modal = modalHelp
}

func (a *App) closeModal() {
	a.modal = modalNone
	a.picker = nil
	a.confirmText = ""
}

func (a *App) loadAdversaries() tea.Cmd {
	src, ctx := a.deps.Adversaries, a.ctx
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		advs, err := src.List(ctx)
		if err != nil {
			return errMsg{fmt.Errorf("load adversaries: %w", err)}
		}
		return adversariesMsg(advs)
	}
}

func (a *App) loadActivity() tea.Cmd {
	h, ctx := a.deps.History, a.ctx
	if h == nil {
		return nil
	}
	return func() tea.Msg {
		list, err := h.Recent(ctx, recentActivity)
		if err != nil {
			logger.Warningf("load activity: %v", err)
			return nil
		}
		return activityMsg(list)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		return a.handleKey(m)
	case adversariesMsg:
		a.adversaries = []compass.Adversary(m)
		if a.refreshing {
			a.refreshing = false
			a.status = "refreshed"
		}
		a.reconcileSelection()
	case activityMsg:
		a.activity = []repository.Activity(m)
	case exportDoneMsg:
		res := m.Result
		a.lastExport = &res
		a.status = fmt.Sprintf("saved %s to %s", layer.FileName, res.Location)
		return a, a.loadActivity()
	case uploadDoneMsg:
		a.modal = modalConfirm
		a.picker = nil
		a.confirmText = CreatedMessage
		a.status = "uploaded " + filepath.Base(m.Path)
		return a, tea.Batch(a.loadAdversaries(), a.loadActivity())
	case errMsg:
		a.refreshing = false
		logger.Errorf("%v", m.error)
		a.status = "error: " + m.Error()
		return a, a.loadActivity()
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(m, a.keys.Export):
		return a, a.TriggerLayerExport()
	case key.Matches(m, a.keys.Adversary):
		a.OpenAdversaryPicker()
	case key.Matches(m, a.keys.Upload):
		a.OpenUploadPicker()
	case key.Matches(m, a.keys.Help):
		a.OpenHelp()
	case key.Matches(m, a.keys.Refresh):
		return a, a.refresh()
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		return a, tea.Quit
	}
	switch a.modal {
	case modalHelp:
		if key.Matches(m, a.keys.Close) || key.Matches(m, a.keys.Help) || m.String() == "q" {
			a.closeModal()
		}
	case modalConfirm:
		if key.Matches(m, a.keys.Confirm) {
			a.closeModal()
		}
	case modalAdversaryPicker:
		res := a.pickerKey(m)
		switch res.Action {
		case pickerActionCancelled:
			a.closeModal()
		case pickerActionSelected:
			a.selectedID = res.Item.ID
			a.selectedLabel = res.Item.Label
			a.closeModal()
			a.status = "layer selection: " + a.selectedLabel
		}
	case modalUploadPicker:
		res := a.pickerKey(m)
		switch res.Action {
		case pickerActionCancelled:
			a.closeModal()
			return a, a.OnFileSelected("")
		case pickerActionSelected:
			a.closeModal()
			return a, a.OnFileSelected(res.Item.ID)
		case pickerActionTyped:
			path := resolveUploadPath(a.deps.UploadDir, res.Item.ID)
			a.closeModal()
			return a, a.OnFileSelected(path)
		}
	}
	return a, nil
}

// pickerKey feeds typed and pasted runes to the picker as text.
func (a *App) pickerKey(m tea.KeyMsg) pickerResult {
	if m.Type == tea.KeyRunes {
		return a.picker.HandleRunes(m.Runes)
	}
	return a.picker.HandleKey(m.String())
}

// refresh reloads adversaries and activity. The status reports the outcome
// of the adversary load once it arrives.
func (a *App) refresh() tea.Cmd {
	load := a.loadAdversaries()
	if load == nil {
		a.status = "refreshed"
		return a.loadActivity()
	}
	a.refreshing = true
	a.status = "refreshing..."
	return tea.Batch(load, a.loadActivity())
}

// reconcileSelection falls back to all adversaries when the chosen one vanished.
func (a *App) reconcileSelection() {
	if a.selectedID == "" {
		return
	}
	for _, adv := range a.adversaries {
		if adv.AdversaryID == a.selectedID {
			if adv.Name != "" {
				a.selectedLabel = adv.Name
			}
			return
		}
	}
	a.status = "adversary " + a.selectedID + " is gone; exporting all adversaries"
	a.selectedID = ""
	a.selectedLabel = allAdversariesLabel
}

// messages
type adversariesMsg []compass.Adversary

type activityMsg []repository.Activity

type exportDoneMsg struct {
	Result service.ExportResult
}

type uploadDoneMsg struct {
	Path   string
	Result compass.UploadResult
}

type errMsg struct{ error }

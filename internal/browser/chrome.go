package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/ports"
)

// ChromeDriver fills the HR web forms with a headless Chrome instance. A
// fresh browser process is launched per run and torn down with it, so a
// wedged page can never leak into the next action.
type ChromeDriver struct {
	BaseURL  string
	Username string

	decrypter ports.Decrypter
	cipher    string

	// ExecPath overrides the chrome binary location when set.
	ExecPath string
	Headless bool
}

// NewChromeDriver builds a driver for the HR web UI at baseURL. The
// password is handed over encrypted and decrypted per session.
func NewChromeDriver(baseURL, username string, decrypter ports.Decrypter, passwordCipher string, execPath string, headless bool) *ChromeDriver {
	return &ChromeDriver{
		BaseURL:   baseURL,
		Username:  username,
		decrypter: decrypter,
		cipher:    passwordCipher,
		ExecPath:  execPath,
		Headless:  headless,
	}
}

func (d *ChromeDriver) Run(ctx context.Context, op model.Operation) error {
	password, err := d.decrypter.Decrypt(d.cipher)
	if err != nil {
		return fmt.Errorf("decrypting web password: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoFirstRun,
	)
	if d.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	tasks := chromedp.Tasks{
		chromedp.Navigate(d.BaseURL + "/login"),
		chromedp.WaitVisible(`#login-form`, chromedp.ByID),
		chromedp.SendKeys(`#username`, d.Username, chromedp.ByID),
		chromedp.SendKeys(`#password`, password, chromedp.ByID),
		chromedp.Click(`#login-submit`, chromedp.ByID),
		chromedp.WaitVisible(`#dashboard`, chromedp.ByID),
	}
	tasks = append(tasks, d.formTasks(op)...)
	tasks = append(tasks, chromedp.WaitVisible(`.submit-success`, chromedp.ByQuery))

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return fmt.Errorf("driving HR web UI: %w", err)
	}
	return nil
}

// formTasks navigates to the right form and fills it for the operation.
func (d *ChromeDriver) formTasks(op model.Operation) chromedp.Tasks {
	switch op.Kind {
	case model.OpLeaveRequest:
		tasks := chromedp.Tasks{
			chromedp.Navigate(d.BaseURL + "/requests/leave"),
			chromedp.WaitVisible(`#leave-form`, chromedp.ByID),
			chromedp.SendKeys(`#leave-date`, op.Date, chromedp.ByID),
			chromedp.SendKeys(`#leave-type`, op.LeaveType, chromedp.ByID),
			chromedp.SendKeys(`#leave-reason`, op.Reason, chromedp.ByID),
		}
		if op.HalfDay {
			tasks = append(tasks, chromedp.Click(`#leave-half-day`, chromedp.ByID))
		}
		return append(tasks, chromedp.Click(`#leave-submit`, chromedp.ByID))

	case model.OpWithdrawal:
		return chromedp.Tasks{
			chromedp.Navigate(fmt.Sprintf("%s/requests/%s", d.BaseURL, op.RequestID)),
			chromedp.WaitVisible(`#request-detail`, chromedp.ByID),
			chromedp.Click(`#withdraw-request`, chromedp.ByID),
			chromedp.Click(`#confirm-withdraw`, chromedp.ByID),
		}

	default:
		// Clock actions and corrections share the attendance record form.
		return chromedp.Tasks{
			chromedp.Navigate(d.BaseURL + "/attendance/correct"),
			chromedp.WaitVisible(`#correction-form`, chromedp.ByID),
			chromedp.SendKeys(`#correction-date`, op.Date, chromedp.ByID),
			chromedp.SendKeys(`#correction-action`, string(op.Action), chromedp.ByID),
			chromedp.SendKeys(`#correction-time`, op.Time, chromedp.ByID),
			chromedp.SendKeys(`#correction-reason`, op.Reason, chromedp.ByID),
			chromedp.Click(`#correction-submit`, chromedp.ByID),
		}
	}
}

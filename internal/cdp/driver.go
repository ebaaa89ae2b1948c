package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenticqa/runner/internal/core"
)

// Driver adapts a CDP client to core.PageDriver. All element location runs as
// injected JS so the four locator kinds share one visibility model.
type Driver struct {
	client *Client
}

// NewDriver wraps an attached client.
func NewDriver(client *Client) *Driver {
	return &Driver{client: client}
}

// NewDriverFactory returns a factory that dials the browser's debug endpoint
// per run. Each run gets its own websocket attachment.
func NewDriverFactory(cdpURL string, logger *slog.Logger) core.DriverFactory {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "cdp")
	return func(ctx context.Context) (core.PageDriver, error) {
		client, err := Dial(ctx, cdpURL)
		if err != nil {
			return nil, err
		}
		log.DebugContext(ctx, "attached to browser page", "cdp_url", cdpURL)
		return NewDriver(client), nil
	}
}

// Navigate loads the URL.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.client.Navigate(ctx, url)
}

// Click locates the target and clicks it.
func (d *Driver) Click(ctx context.Context, target core.Target) error {
	finder, err := finderJS(target)
	if err != nil {
		return err
	}
	expression := fmt.Sprintf(`(() => {
	%s
	const el = __find();
	if (!el) return "not_found";
	el.scrollIntoView({block:"center", inline:"center"});
	if (typeof el.focus === "function") el.focus();
	el.click();
	return "ok";
	})()`, finder)

	result, err := d.client.EvaluateString(ctx, expression)
	if err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("click %s: element not found", describeTarget(target))
	}
	return nil
}

// Fill locates the target input, clears it, and types the value through the
// browser's input pipeline so framework listeners fire.
func (d *Driver) Fill(ctx context.Context, target core.Target, value string) error {
	finder, err := finderJS(target)
	if err != nil {
		return err
	}
	expression := fmt.Sprintf(`(() => {
	%s
	const el = __find();
	if (!el) return "not_found";
	el.scrollIntoView({block:"center", inline:"center"});
	el.focus();
	if ("value" in el) {
		el.value = "";
		el.dispatchEvent(new Event("input", {bubbles: true}));
	}
	return "ok";
	})()`, finder)

	result, err := d.client.EvaluateString(ctx, expression)
	if err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("fill %s: element not found", describeTarget(target))
	}
	if err := d.client.Call(ctx, "Input.insertText", map[string]any{"text": value}, nil); err != nil {
		return fmt.Errorf("fill %s: insert text: %w", describeTarget(target), err)
	}
	return nil
}

// Content returns the page's current HTML.
func (d *Driver) Content(ctx context.Context) (string, error) {
	return d.client.EvaluateString(ctx, "document.documentElement.outerHTML")
}

// Screenshot captures the page as a base64-encoded PNG.
func (d *Driver) Screenshot(ctx context.Context) (string, error) {
	return d.client.CaptureScreenshot(ctx)
}

// Close detaches from the page.
func (d *Driver) Close(_ context.Context) error {
	return d.client.Close()
}

// finderJS builds a JS snippet defining __find() for the target. Every kind
// applies the same visibility filter; text matching is trimmed and
// case-insensitive.
func finderJS(t core.Target) (string, error) {
	const visible = `
	const __visible = (el) => {
		const style = window.getComputedStyle(el);
		if (!style || style.display === "none" || style.visibility === "hidden") return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 1 && rect.height > 1;
	};
	const __matches = (el, needle) =>
		(el.textContent || "").trim().toLowerCase().includes(needle) ||
		(el.getAttribute("aria-label") || "").trim().toLowerCase().includes(needle) ||
		(el.value || "").trim().toLowerCase().includes(needle);`

	switch t.Kind {
	case core.TargetSelector:
		if strings.TrimSpace(t.Selector) == "" {
			return "", errors.New("selector is required")
		}
		return fmt.Sprintf(`%s
	const __find = () => Array.from(document.querySelectorAll(%q)).find(__visible);`,
			visible, t.Selector), nil

	case core.TargetRole:
		needle := strings.ToLower(strings.TrimSpace(t.Text))
		var roleSelector string
		switch t.Role {
		case "button":
			roleSelector = `button, [role="button"], input[type="submit"], input[type="button"]`
		case "link":
			roleSelector = `a, [role="link"]`
		default:
			roleSelector = fmt.Sprintf(`[role=%q]`, t.Role)
		}
		return fmt.Sprintf(`%s
	const __find = () => {
		const needle = %q;
		return Array.from(document.querySelectorAll(%q))
			.filter(__visible)
			.find((el) => needle === "" || __matches(el, needle));
	};`, visible, needle, roleSelector), nil

	case core.TargetLabel:
		needle := strings.ToLower(strings.TrimSpace(t.Text))
		if needle == "" {
			return "", errors.New("label text is required")
		}
		return fmt.Sprintf(`%s
	const __find = () => {
		const needle = %q;
		const label = Array.from(document.querySelectorAll("label"))
			.filter(__visible)
			.find((el) => (el.textContent || "").trim().toLowerCase().includes(needle));
		if (label) {
			if (label.htmlFor) {
				const control = document.getElementById(label.htmlFor);
				if (control && __visible(control)) return control;
			}
			const nested = label.querySelector("input, textarea, select");
			if (nested && __visible(nested)) return nested;
		}
		return Array.from(document.querySelectorAll("input, textarea, select"))
			.filter(__visible)
			.find((el) =>
				(el.getAttribute("aria-label") || "").trim().toLowerCase().includes(needle) ||
				(el.getAttribute("placeholder") || "").trim().toLowerCase().includes(needle) ||
				(el.getAttribute("name") || "").trim().toLowerCase().includes(needle));
	};`, visible, needle), nil

	case core.TargetText:
		needle := strings.ToLower(strings.TrimSpace(t.Text))
		if needle == "" {
			return "", errors.New("target text is required")
		}
		// Prefer the smallest matching element so a page-wide container
		// never shadows the actual control.
		return fmt.Sprintf(`%s
	const __find = () => {
		const needle = %q;
		const candidates = Array.from(document.querySelectorAll(
			"a, button, input, label, span, div, p, li, td, th, h1, h2, h3, h4, [role]"))
			.filter(__visible)
			.filter((el) => __matches(el, needle));
		candidates.sort((a, b) =>
			(a.textContent || "").length - (b.textContent || "").length);
		return candidates[0];
	};`, visible, needle), nil

	default:
		return "", fmt.Errorf("unknown target kind %q", t.Kind)
	}
}

func describeTarget(t core.Target) string {
	switch t.Kind {
	case core.TargetSelector:
		return fmt.Sprintf("selector %q", t.Selector)
	case core.TargetRole:
		return fmt.Sprintf("role %s %q", t.Role, t.Text)
	case core.TargetLabel:
		return fmt.Sprintf("label %q", t.Text)
	default:
		return fmt.Sprintf("text %q", t.Text)
	}
}

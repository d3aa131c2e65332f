package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/envwarn/pkg/banner"
	"github.com/entrhq/envwarn/pkg/config"
)

const showBannerScript = `(v) => {
	const root = document.body || document.documentElement;
	if (!root) return false;
	let el = document.getElementById('__envwarn_banner');
	if (!el) {
		el = document.createElement('div');
		el.id = '__envwarn_banner';
		root.insertBefore(el, root.firstChild);
	}
	el.textContent = '';
	el.style.cssText = 'position:fixed;left:0;right:0;z-index:2147483647;display:flex;align-items:center;justify-content:center;font:bold 14px sans-serif;letter-spacing:1px;box-shadow:0 2px 4px rgba(0,0,0,.2);';
	el.style[v.position === 'bottom' ? 'bottom' : 'top'] = '0';
	el.style.height = v.height + 'px';
	el.style.backgroundColor = v.background;
	el.style.color = v.foreground;
	el.title = v.title;

	const label = document.createElement('span');
	label.textContent = v.text;
	el.appendChild(label);

	const close = document.createElement('button');
	close.textContent = '×';
	close.title = 'Dismiss';
	close.style.cssText = 'position:absolute;right:8px;background:none;border:none;cursor:pointer;font-size:16px;color:inherit;';
	close.addEventListener('click', () => {
		if (typeof window[v.binding] === 'function') window[v.binding]();
	});
	el.appendChild(close);
	return true;
}`

const hideBannerScript = `() => {
	const el = document.getElementById('__envwarn_banner');
	if (el) el.remove();
	return true;
}`

const showRulesScript = `(v) => {
	const old = document.getElementById('__envwarn_rules');
	if (old) old.remove();
	if (!v.rules.length) return true;
	const root = document.body || document.documentElement;
	if (!root) return false;

	const box = document.createElement('div');
	box.id = '__envwarn_rules';
	box.style.cssText = 'position:fixed;left:0;right:0;z-index:2147483646;';
	box.style[v.position] = '0';
	for (const rule of v.rules) {
		const strip = document.createElement('div');
		strip.style.cssText = 'height:25px;width:100%;text-align:center;line-height:25px;font:13px sans-serif;';
		strip.style.backgroundColor = rule.colour;
		strip.innerText = rule.text;
		box.appendChild(strip);
	}
	root.insertBefore(box, root.firstChild);
	return true;
}`

// Renderer draws the environment banner and legacy rule strips into a page.
// It remembers what it drew so a fresh document can be redrawn.
type Renderer struct {
	page driver

	mu    sync.Mutex
	view  *banner.View
	rules []config.Rule
}

// NewRenderer creates a renderer for page.
func NewRenderer(page driver) *Renderer {
	return &Renderer{page: page}
}

// Show draws the banner, replacing any banner already on the page.
func (r *Renderer) Show(ctx context.Context, view banner.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.view = &view
	return r.show(view)
}

// Hide removes the banner.
func (r *Renderer) Hide(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.view = nil
	if _, err := r.page.Evaluate(hideBannerScript); err != nil {
		return fmt.Errorf("failed to remove banner: %w", err)
	}
	return nil
}

// ShowRules draws one strip per rule. Strips sit on the edge opposite the
// environment banner. An empty list removes them.
func (r *Renderer) ShowRules(ctx context.Context, rules []config.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append([]config.Rule(nil), rules...)
	return r.showRules()
}

// Redraw reapplies the last banner and rule strips after the page loaded a
// new document.
func (r *Renderer) Redraw(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.view != nil {
		if err := r.show(*r.view); err != nil {
			return err
		}
	}
	if len(r.rules) > 0 {
		return r.showRules()
	}
	return nil
}

// Current returns the banner currently drawn, if any.
func (r *Renderer) Current() (banner.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.view == nil {
		return banner.View{}, false
	}
	return *r.view, true
}

func (r *Renderer) show(view banner.View) error {
	arg := map[string]interface{}{
		"text":       view.Text,
		"title":      view.MatchedPattern,
		"background": view.Background,
		"foreground": view.Foreground,
		"position":   view.Position,
		"height":     view.Height,
		"binding":    dismissBinding,
	}
	if _, err := r.page.Evaluate(showBannerScript, arg); err != nil {
		return fmt.Errorf("failed to draw banner: %w", err)
	}
	return nil
}

func (r *Renderer) showRules() error {
	position := config.BannerPositionBottom
	if r.view != nil && r.view.Position == config.BannerPositionBottom {
		position = config.BannerPositionTop
	}

	items := make([]interface{}, 0, len(r.rules))
	for _, rule := range r.rules {
		items = append(items, map[string]interface{}{
			"text":   rule.Text,
			"colour": rule.Colour,
		})
	}

	arg := map[string]interface{}{"rules": items, "position": position}
	if _, err := r.page.Evaluate(showRulesScript, arg); err != nil {
		return fmt.Errorf("failed to draw rule strips: %w", err)
	}
	return nil
}

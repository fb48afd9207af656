// ABOUTME: Static fallback schemas when no model API key is available.
// ABOUTME: Picks a template by keywords in the prompt.

package generate

import (
	"strings"

	"github.com/2389/dic/internal/schema"
)

type template struct {
	keywords []string
	build    func(prompt string) schema.Schema
}

var templates = []template{
	{keywords: []string{"registration", "register", "sign up", "signup"}, build: registrationForm},
	{keywords: []string{"contact", "message", "feedback"}, build: contactForm},
	{keywords: []string{"product", "showcase", "price", "shop"}, build: productShowcase},
	{keywords: []string{"landing", "hero", "call-to-action", "homepage"}, build: landingPage},
}

// Static returns a template schema matching prompt, or a generic page that
// echoes the prompt.
func Static(prompt string) schema.Schema {
	lower := strings.ToLower(prompt)
	for _, t := range templates {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t.build(prompt)
			}
		}
	}
	return genericPage(prompt)
}

func field(label, typ string, required bool, extra map[string]any) map[string]any {
	f := map[string]any{"label": label, "type": typ, "required": required}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func contactForm(string) schema.Schema {
	return schema.Schema{
		schema.New("text", schema.Props{"content": "Contact Us", "variant": "h2"}),
		schema.New("text", schema.Props{"content": "We'd love to hear from you. Send us a message and we'll respond as soon as possible.", "variant": "p"}),
		schema.New("form", schema.Props{
			"fields": []any{
				field("Name", "text", true, map[string]any{"placeholder": "Your name"}),
				field("Email", "email", true, map[string]any{"placeholder": "you@example.com"}),
				field("Message", "textarea", true, map[string]any{"placeholder": "How can we help?", "rows": 5}),
			},
			"submitText": "Send Message",
			"onSubmit":   `"Thanks " + values.field_0 + ", we'll be in touch!"`,
		}),
	}
}

func registrationForm(string) schema.Schema {
	return schema.Schema{
		schema.New("text", schema.Props{"content": "Create Your Account", "variant": "h2"}),
		schema.New("form", schema.Props{
			"fields": []any{
				field("Email", "email", true, map[string]any{"placeholder": "you@example.com"}),
				field("Password", "password", true, map[string]any{"placeholder": "At least 8 characters"}),
				field("Age", "number", true, map[string]any{"min": 13, "max": 120}),
			},
			"submitText": "Register",
			"onSubmit":   `len(values.field_1) < 8 ? error("Password must be at least 8 characters") : "Welcome aboard!"`,
		}),
	}
}

func landingPage(string) schema.Schema {
	return schema.Schema{
		schema.New("text", schema.Props{"content": "Build Interfaces at the Speed of Thought", "variant": "h1", "className": "text-center"}),
		schema.New("text", schema.Props{"content": "Describe what you need and watch it render live.", "variant": "p", "className": "text-center"}),
		schema.New("image", schema.Props{"src": "https://picsum.photos/1200/400", "alt": "Hero banner", "width": "100%", "rounded": true, "shadow": true}),
		schema.New("form", schema.Props{
			"fields": []any{
				field("Email", "email", true, map[string]any{"placeholder": "Get early access"}),
			},
			"submitText": "Get Started",
		}),
	}
}

func productShowcase(string) schema.Schema {
	return schema.Schema{
		schema.New("image", schema.Props{"src": "https://picsum.photos/600/400", "alt": "Product photo", "width": "600px", "rounded": true, "shadow": true}),
		schema.New("text", schema.Props{"content": "Aurora Wireless Headphones", "variant": "h2"}),
		schema.New("text", schema.Props{"content": "Immersive sound, all-day comfort and 30 hours of battery life.", "variant": "p"}),
		schema.New("text", schema.Props{"content": "$149.00", "variant": "h3", "className": "text-emerald-600"}),
		schema.New("form", schema.Props{
			"fields": []any{
				field("Quantity", "number", true, map[string]any{"min": 1, "max": 10}),
			},
			"submitText": "Add to Cart",
			"onSubmit":   `"Added " + values.field_0 + " to your cart"`,
		}),
	}
}

func genericPage(prompt string) schema.Schema {
	return schema.Schema{
		schema.New("text", schema.Props{"content": "Generated Interface", "variant": "h2"}),
		schema.New("text", schema.Props{"content": prompt, "variant": "p"}),
		schema.New("form", schema.Props{
			"fields": []any{
				field("Name", "text", true, nil),
			},
			"submitText": "Submit",
		}),
	}
}

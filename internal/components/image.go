// ABOUTME: Image component with size, rounding and shadow options.
// ABOUTME: Unsafe sources are replaced by a placeholder, broken ones fall back in the browser.

package components

import (
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/ui"
)

const (
	// FallbackImage replaces an image whose source fails to load.
	FallbackImage = "https://placehold.co/300x200?text=Image+Not+Found"
	defaultImage  = "https://picsum.photos/400/300"
)

var (
	imagePolicyOnce sync.Once
	imagePolicy     *bluemonday.Policy
)

func imageSanitizer() *bluemonday.Policy {
	imagePolicyOnce.Do(func() {
		policy := bluemonday.NewPolicy()
		policy.AllowAttrs("src").OnElements("img")
		policy.AllowURLSchemes("http", "https")
		policy.AllowRelativeURLs(true)
		policy.AllowDataURIImages()
		imagePolicy = policy
	})
	return imagePolicy
}

// SafeImageSource reports whether src may be used as an image source:
// http(s), relative, or a data URI of an image.
func SafeImageSource(src string) bool {
	cleaned := imageSanitizer().Sanitize(`<img src="` + html.EscapeString(src) + `">`)
	return strings.Contains(cleaned, "src=")
}

// Image renders image descriptors.
type Image struct{}

// NewImage returns the image component.
func NewImage() *Image { return &Image{} }

func (i *Image) Default() schema.Props {
	return schema.Props{"src": defaultImage, "alt": "Sample image", "width": "400px", "rounded": true}
}

func (i *Image) Render(props schema.Props, index int, in Interaction) ui.Node {
	src := strings.TrimSpace(props.String("src", ""))
	if src == "" || !SafeImageSource(src) {
		src = FallbackImage
	}

	classes := []string{"block", "max-w-full", "h-auto"}
	if props.Bool("rounded") {
		classes = append(classes, "rounded-lg")
	}
	if props.Bool("shadow") {
		classes = append(classes, "shadow-lg")
	}

	var style []string
	if w := cssSize(props, "width"); w != "" {
		style = append(style, "width: "+w)
	}
	if h := cssSize(props, "height"); h != "" {
		style = append(style, "height: "+h)
	}

	container := "inline-block mb-4"
	if extra := props.String("className", ""); extra != "" {
		container += " " + extra
	}

	return ui.El("div", []ui.Attr{ui.Class(container)},
		ui.El("img", []ui.Attr{
			ui.A("src", src),
			ui.A("alt", props.String("alt", "Image")),
			ui.Class(strings.Join(classes, " ")),
			ui.A("style", strings.Join(style, "; ")),
			ui.A("onerror", "this.onerror=null;this.src='"+FallbackImage+"';this.alt='Image failed to load'"),
		}),
	)
}

// cssSize turns a numeric size into pixels and passes strings through.
func cssSize(props schema.Props, key string) string {
	if n, ok := props.Number(key); ok {
		return strconv.FormatFloat(n, 'f', -1, 64) + "px"
	}
	return props.String(key, "")
}

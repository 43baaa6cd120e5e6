package signature

import "regexp"

// Option configures the default registry.
type Option func(*options)

type options struct {
	libraryDetection bool
}

// WithLibraryDetection enables the library-tier signatures (front-end
// frameworks, CSS toolkits, tag managers) in addition to the always-on
// platform tier. Library signatures add noise on content-focused scans,
// so they are opt-in.
func WithLibraryDetection(enabled bool) Option {
	return func(o *options) {
		o.libraryDetection = enabled
	}
}

// Default creates a registry seeded with the curated rule set: platform
// signatures, CDN hosts, analytics rules, server hints, and keyword
// overrides. Seeding happens once at construction; the returned registry
// is safe for concurrent readers as long as no further Register calls
// are made.
func Default(opts ...Option) *Registry {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := New()
	for _, sig := range platformSignatures() {
		r.Register(sig)
	}
	for _, sig := range trackerSignatures() {
		r.Register(sig)
	}
	if o.libraryDetection {
		for _, sig := range librarySignatures() {
			r.Register(sig)
		}
	}
	seedCDNHosts(r)
	seedAnalyticsRules(r)
	seedServerHints(r)
	seedKeywordOverrides(r)
	return r
}

// htmlPattern builds a Signature that matches the pattern against the
// page markup only.
func htmlPattern(name, pattern string) Signature {
	re := regexp.MustCompile(pattern)
	return Signature{
		Name: name,
		Match: func(html, _ string) bool {
			return re.MatchString(html)
		},
	}
}

// anyPattern builds a Signature that matches the pattern against the
// page markup or the combined script corpus.
func anyPattern(name, pattern string) Signature {
	re := regexp.MustCompile(pattern)
	return Signature{
		Name: name,
		Match: func(html, scripts string) bool {
			return re.MatchString(html) || re.MatchString(scripts)
		},
	}
}

// platformSignatures is the always-on tier: site platforms and CMSes.
// The patterns favor markers the platform emits on every page
// (asset paths, generator strings, bootstrap globals) over markers that
// only appear on specific page types.
func platformSignatures() []Signature {
	return []Signature{
		anyPattern("WordPress", `(?i)wp-content|wp-includes|wp-json|content="WordPress`),
		anyPattern("WooCommerce", `(?i)woocommerce`),
		anyPattern("Shopify", `(?i)cdn\.shopify\.com|Shopify\.theme|myshopify\.com`),
		anyPattern("Wix", `(?i)wix\.com|wixstatic\.com|X-Wix-`),
		htmlPattern("Squarespace", `(?i)squarespace\.com|static1\.squarespace|\bSquarespace\b`),
		htmlPattern("Webflow", `(?i)webflow\.com|\bdata-wf-page\b|\bdata-wf-site\b`),
		anyPattern("Drupal", `(?i)\bDrupal\b|drupal\.js|/sites/default/files/`),
		anyPattern("Joomla", `(?i)\bJoomla\b|/media/jui/|com_content`),
		anyPattern("Magento", `(?i)\bMagento\b|mage/cookies|/static/version\d+/`),
		anyPattern("Ghost", `(?i)ghost\.css|/ghost/api/|content="Ghost`),
		anyPattern("PrestaShop", `(?i)prestashop|/modules/ps_`),
		anyPattern("Typo3", `(?i)typo3conf|typo3temp|\bTYPO3\b`),
		anyPattern("Bitrix", `(?i)bitrix/js|bitrix/templates`),
	}
}

// trackerSignatures is the always-on tracker tier. Trackers also appear
// in the analytics rule set; listing them here as well surfaces them in
// the technologies inventory, which is what most reports are read for.
func trackerSignatures() []Signature {
	return []Signature{
		anyPattern("Google Analytics", `(?i)google-analytics\.com|googletagmanager\.com/gtag/js|gtag\(`),
		anyPattern("Google Tag Manager", `(?i)googletagmanager\.com/gtm\.js|\bGTM-[A-Z0-9]+`),
		anyPattern("Facebook Pixel", `(?i)connect\.facebook\.net|fbq\('init'`),
		anyPattern("Hotjar", `(?i)hotjar\.com|hjSettings`),
	}
}

// librarySignatures is the opt-in tier: front-end frameworks and
// toolkits. See WithLibraryDetection.
func librarySignatures() []Signature {
	return []Signature{
		anyPattern("Next.js", `(?i)__NEXT_DATA__|_next/static`),
		anyPattern("Nuxt", `(?i)__NUXT__|/_nuxt/`),
		anyPattern("Gatsby", `(?i)___gatsby|gatsby-`),
		anyPattern("React", `(?i)\bdata-reactroot\b|react(\.production|\.development)?(\.min)?\.js|react-dom`),
		anyPattern("Vue.js", `(?i)\bdata-v-[0-9a-f]{8}\b|vue(\.runtime)?(\.global)?(\.min)?\.js|__vue__`),
		anyPattern("Angular", `(?i)\bng-version=|\bng-app\b|angular(\.min)?\.js`),
		anyPattern("Svelte", `(?i)\bsvelte-[0-9a-z]+\b|svelte/internal`),
		anyPattern("jQuery", `(?i)jquery[.0-9-]*(\.min|\.slim)*\.js|code\.jquery\.com`),
		anyPattern("Bootstrap", `(?i)bootstrap[.0-9-]*(\.min)?\.(css|js)|bootstrapcdn\.com`),
		htmlPattern("Tailwind CSS", `(?i)tailwindcss|tailwind\.config`),
		anyPattern("Font Awesome", `(?i)font-?awesome|fontawesome\.com`),
		anyPattern("Alpine.js", `(?i)\bx-data=|alpinejs`),
		anyPattern("htmx", `(?i)\bhx-(get|post|trigger|swap)=|htmx(\.min)?\.js`),
	}
}

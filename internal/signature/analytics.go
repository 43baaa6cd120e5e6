package signature

// seedAnalyticsRules registers the fixed analytics-tool rule set.
// Rules match against the raw markup (inline bootstrap snippets) and
// against external script URLs; either is sufficient.
func seedAnalyticsRules(r *Registry) {
	for _, rule := range []AnalyticsRule{
		{
			Name:             "Google Analytics",
			HTMLSubstrings:   []string{"google-analytics.com", "gtag(", "ga('create'", "_gaq.push"},
			ScriptSubstrings: []string{"google-analytics.com", "googletagmanager.com/gtag/js"},
		},
		{
			Name:             "Google Tag Manager",
			HTMLSubstrings:   []string{"googletagmanager.com/gtm.js", "GTM-"},
			ScriptSubstrings: []string{"googletagmanager.com/gtm.js"},
		},
		{
			Name:             "Facebook Pixel",
			HTMLSubstrings:   []string{"connect.facebook.net", "fbq('init'"},
			ScriptSubstrings: []string{"connect.facebook.net"},
		},
		{
			Name:             "Hotjar",
			HTMLSubstrings:   []string{"static.hotjar.com", "hjSettings"},
			ScriptSubstrings: []string{"hotjar.com"},
		},
		{
			Name:             "Matomo",
			HTMLSubstrings:   []string{"matomo.js", "_paq.push"},
			ScriptSubstrings: []string{"matomo.js", "piwik.js"},
		},
		{
			Name:             "Plausible",
			HTMLSubstrings:   []string{"plausible.io/js"},
			ScriptSubstrings: []string{"plausible.io/js", "/js/script.js"},
		},
		{
			Name:             "Mixpanel",
			HTMLSubstrings:   []string{"mixpanel.init"},
			ScriptSubstrings: []string{"cdn.mxpnl.com", "mixpanel"},
		},
		{
			Name:             "Segment",
			HTMLSubstrings:   []string{"analytics.load(", "cdn.segment.com"},
			ScriptSubstrings: []string{"cdn.segment.com"},
		},
		{
			Name:             "Yandex Metrica",
			HTMLSubstrings:   []string{"mc.yandex.ru", "ym(", "yandex_metrika"},
			ScriptSubstrings: []string{"mc.yandex.ru"},
		},
		{
			Name:             "Microsoft Clarity",
			HTMLSubstrings:   []string{"clarity.ms", `clarity("`},
			ScriptSubstrings: []string{"clarity.ms"},
		},
		{
			Name:             "Cloudflare Web Analytics",
			HTMLSubstrings:   []string{"static.cloudflareinsights.com"},
			ScriptSubstrings: []string{"cloudflareinsights.com"},
		},
	} {
		r.RegisterAnalyticsRule(rule)
	}
}

package signature

// seedCDNHosts registers the curated CDN and tracking host substrings.
// Hosts are matched by substring containment (see Registry.IsCDNHost),
// so entries should be specific enough not to swallow unrelated domains.
func seedCDNHosts(r *Registry) {
	for _, host := range []string{
		// general-purpose asset CDNs
		"cdn.jsdelivr.net",
		"cdnjs.cloudflare.com",
		"unpkg.com",
		"ajax.googleapis.com",
		"fonts.googleapis.com",
		"fonts.gstatic.com",
		"code.jquery.com",
		"stackpath.bootstrapcdn.com",
		"maxcdn.bootstrapcdn.com",
		"use.fontawesome.com",
		"kit.fontawesome.com",
		"ajax.aspnetcdn.com",
		"cdn.tailwindcss.com",

		// platform asset hosts
		"cdn.shopify.com",
		"static.parastorage.com",
		"static1.squarespace.com",
		"assets.squarespace.com",
		"uploads-ssl.webflow.com",
		"assets-global.website-files.com",

		// edge/infrastructure CDNs
		"cloudfront.net",
		"akamaized.net",
		"akamaihd.net",
		"fastly.net",
		"azureedge.net",
		"b-cdn.net",
		"cdn.cookielaw.org",

		// tag managers and trackers loaded as scripts
		"googletagmanager.com",
		"google-analytics.com",
		"googlesyndication.com",
		"doubleclick.net",
		"connect.facebook.net",
		"static.hotjar.com",
		"script.hotjar.com",
		"cdn.segment.com",
		"cdn.mxpnl.com",
		"plausible.io",
		"mc.yandex.ru",
		"clarity.ms",
		"snap.licdn.com",
		"static.cloudflareinsights.com",
	} {
		r.RegisterCDNHost(host)
	}
}

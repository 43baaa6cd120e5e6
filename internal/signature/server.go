package signature

// seedServerHints registers the ordered server-label fallback hints.
// These fire only when a page carries no generator meta tag; the first
// matching substring decides the label, so more specific markers come
// before generic ones.
func seedServerHints(r *Registry) {
	for _, hint := range []ServerHint{
		{Substring: "wp-content", Label: "WordPress"},
		{Substring: "wp-includes", Label: "WordPress"},
		{Substring: "cdn.shopify.com", Label: "Shopify"},
		{Substring: "myshopify.com", Label: "Shopify"},
		{Substring: "wixstatic.com", Label: "Wix"},
		{Substring: "wix.com", Label: "Wix"},
		{Substring: "squarespace", Label: "Squarespace"},
		{Substring: "webflow", Label: "Webflow"},
		{Substring: "/sites/default/files/", Label: "Drupal"},
		{Substring: "drupal", Label: "Drupal"},
		{Substring: "joomla", Label: "Joomla"},
		{Substring: "magento", Label: "Magento"},
		{Substring: "/ghost/api/", Label: "Ghost"},
		{Substring: "prestashop", Label: "PrestaShop"},
		{Substring: "typo3", Label: "TYPO3"},
	} {
		r.RegisterServerHint(hint)
	}
}

// seedKeywordOverrides registers the meta-keywords overrides. Platforms
// occasionally self-identify in the keywords tag on pages whose markup
// carries no other marker, so a keyword hit appends the technology
// without replacing any signature match.
func seedKeywordOverrides(r *Registry) {
	for _, o := range []KeywordOverride{
		{Keyword: "wordpress", Technology: "WordPress"},
		{Keyword: "woocommerce", Technology: "WooCommerce"},
		{Keyword: "shopify", Technology: "Shopify"},
		{Keyword: "magento", Technology: "Magento"},
		{Keyword: "drupal", Technology: "Drupal"},
		{Keyword: "joomla", Technology: "Joomla"},
	} {
		r.RegisterKeywordOverride(o)
	}
}

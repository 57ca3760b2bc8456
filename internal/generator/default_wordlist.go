package generator

// commonLabels is the fallback list used when no wordlist file is supplied.
// It covers the subdomain labels most hosts actually expose.
var commonLabels = []string{
	"www", "mail", "ftp", "localhost", "webmail", "smtp", "pop", "ns1", "webdisk",
	"ns2", "cpanel", "whm", "autodiscover", "autoconfig", "ns", "test", "admin",
	"blog", "dev", "api", "secure", "vpn", "mobile", "shop", "app", "cdn", "m",
	"email", "portal", "support", "forum", "news", "media", "static", "docs",
	"store", "db", "sql", "backup", "old", "new", "beta", "staging",
	"mail2", "live", "search", "images", "img", "download", "uploads",
	"video", "music", "demo", "help", "kb", "wiki", "status", "monitor",
	"payment", "billing", "invoice", "ssl", "cloud", "server",
	"serv", "service", "services", "apps", "office", "remote", "share",
	"shared", "sharepoint", "file", "files", "doc", "document",
	"map", "chat",
}

// defaultWords returns a deduplicated copy of the built-in list.
func defaultWords() []string {
	seen := make(map[string]struct{}, len(commonLabels))
	out := make([]string, 0, len(commonLabels))
	for _, w := range commonLabels {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

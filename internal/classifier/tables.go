package classifier

import (
	"strings"

	"Go2NetScope/internal/model"
)

// Traffic categories.
const (
	CategoryWeb          = "Web Traffic"
	CategoryDevelopment  = "Development"
	CategoryDatabase     = "Database"
	CategoryRemoteAccess = "Remote Access"
	CategoryDNS          = "DNS"
	CategoryEmail        = "Email"
	CategoryOther        = "Other"
)

// Connection statuses derived from TCP flags.
const (
	StatusInitiating   = "Initiating"
	StatusEstablishing = "Establishing"
	StatusActive       = "Active"
	StatusClosing      = "Closing"
	StatusReset        = "Reset"
)

// Geographic regions.
const (
	RegionLocalhost      = "Localhost"
	RegionLocalNetwork   = "Local Network"
	RegionGoogleDNS      = "Google DNS"
	RegionGoogleServices = "Google Services"
	RegionAWS            = "AWS"
	RegionMicrosoft      = "Microsoft"
	RegionExternal       = "External"
)

// Application fallbacks for ports missing from the table.
const (
	AppWellKnown = "Well-known"
	AppDynamic   = "Dynamic/Private"
)

var applications = map[int]string{
	80:    "HTTP",
	443:   "HTTPS",
	8080:  "HTTP-Alt",
	8443:  "HTTPS-Alt",
	25:    "SMTP",
	110:   "POP3",
	143:   "IMAP",
	587:   "SMTP-Submission",
	993:   "IMAPS",
	995:   "POP3S",
	21:    "FTP",
	22:    "SSH/SFTP",
	69:    "TFTP",
	53:    "DNS",
	23:    "Telnet",
	3389:  "RDP",
	5900:  "VNC",
	1433:  "MSSQL",
	3306:  "MySQL",
	5432:  "PostgreSQL",
	1521:  "Oracle",
	8000:  "HTTP-Alt",
	8008:  "HTTP-Alt",
	8888:  "HTTP-Alt",
	25565: "Minecraft",
	27015: "Steam",
	123:   "NTP",
	161:   "SNMP",
	162:   "SNMP-Trap",
	389:   "LDAP",
	636:   "LDAPS",
}

// categoryRule maps a port predicate to a category and security level.
// Rules are evaluated in order and the first match wins.
type categoryRule struct {
	match    func(port int) bool
	category string
	security func(port int) string
}

func fixed(level string) func(int) string {
	return func(int) string { return level }
}

func oneOf(ports ...int) func(int) bool {
	return func(p int) bool {
		for _, q := range ports {
			if p == q {
				return true
			}
		}
		return false
	}
}

var categoryRules = []categoryRule{
	{
		match:    oneOf(80, 443, 8080, 8443),
		category: CategoryWeb,
		security: func(p int) string {
			if p == 443 || p == 8443 {
				return model.SecurityHigh
			}
			return model.SecurityMedium
		},
	},
	{match: func(p int) bool { return p >= 3000 && p <= 9000 }, category: CategoryDevelopment, security: fixed(model.SecurityMedium)},
	{match: oneOf(3306, 5432, 1433, 27017), category: CategoryDatabase, security: fixed(model.SecurityHigh)},
	{match: oneOf(22, 3389, 5900), category: CategoryRemoteAccess, security: fixed(model.SecurityCritical)},
	{match: oneOf(53), category: CategoryDNS, security: fixed(model.SecurityMedium)},
	{match: oneOf(25, 110, 143, 587, 993, 995), category: CategoryEmail, security: fixed(model.SecurityMedium)},
}

var connectionStatuses = map[string]string{
	"SYN":     StatusInitiating,
	"SYN ACK": StatusEstablishing,
	"ACK":     StatusActive,
	"PSH ACK": StatusActive,
	"FIN":     StatusClosing,
	"FIN ACK": StatusClosing,
	"RST":     StatusReset,
}

// regionRule matches an address either by prefix or by substring.
type regionRule struct {
	region   string
	prefixes []string
	contains []string
}

func (r regionRule) matches(ip string) bool {
	for _, p := range r.prefixes {
		if strings.HasPrefix(ip, p) {
			return true
		}
	}
	for _, s := range r.contains {
		if strings.Contains(ip, s) {
			return true
		}
	}
	return false
}

var regionRules = []regionRule{
	{region: RegionLocalhost, prefixes: []string{"127."}},
	{region: RegionLocalNetwork, prefixes: []string{"192.168.", "10.", "172."}},
	{region: RegionGoogleDNS, prefixes: []string{"8.8."}},
	{region: RegionGoogleServices, contains: []string{"74.125.", "172.217."}},
	{region: RegionAWS, contains: []string{"52.", "54."}},
	{region: RegionMicrosoft, contains: []string{"13.107.", "40."}},
}

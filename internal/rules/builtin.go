package rules

import "github.com/passcan/passcan/internal/types"

// Placeholders are denylist entries shared by the credential-shaped rules.
// Documentation samples and templated values contain one of these.
var Placeholders = []string{
	"example",
	"changeme",
	"xxxxxxxx",
	"dummy",
	"placeholder",
	"your_",
	"your-",
	"redacted",
	"sample",
	"${",
	"{{",
	"<",
}

func withPlaceholders(extra ...string) []string {
	return append(append([]string(nil), Placeholders...), extra...)
}

// Builtin returns a fresh copy of the built-in catalog in evaluation order.
func Builtin() []Rule {
	return []Rule{
		{
			ID:          "aws_access_key",
			Label:       "AWS Access Key",
			Pattern:     `\b((?:AKIA|ASIA|ABIA|ACCA)[0-9A-Z]{16})\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Denylist:    withPlaceholders(),
			Specificity: 0.9,
			SecretGroup: 1,
			Keywords:    []string{"akia", "asia", "abia", "acca"},
			Validator:   "aws_access_key",
		},
		{
			ID:          "aws_secret_key",
			Label:       "AWS Secret Key",
			Pattern:     `(?i)(?:aws_secret_access_key|aws_secret_key|secret_?key)["'\s]*[:=]\s*["']?([A-Za-z0-9/+=]{40})`,
			Severity:    types.SevCritical,
			MinEntropy:  3.5,
			Denylist:    withPlaceholders(),
			Specificity: 0.8,
			SecretGroup: 1,
			Keywords:    []string{"secret"},
			Validator:   "aws_secret_key",
		},
		{
			ID:          "github_token",
			Label:       "GitHub Token",
			Pattern:     `\bg(?:hp|ho|hu|hs|hr)_[A-Za-z0-9]{36}\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Denylist:    withPlaceholders(),
			Specificity: 0.95,
			Keywords:    []string{"ghp_", "gho_", "ghu_", "ghs_", "ghr_"},
			Validator:   "github_token",
		},
		{
			ID:          "github_fine_grained_pat",
			Label:       "GitHub Fine-Grained Token",
			Pattern:     `\bgithub_pat_[A-Za-z0-9_]{82}\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Specificity: 0.95,
			Keywords:    []string{"github_pat_"},
		},
		{
			ID:          "gitlab_token",
			Label:       "GitLab Personal Access Token",
			Pattern:     `\bglpat-[A-Za-z0-9_-]{20}`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Specificity: 0.9,
			Keywords:    []string{"glpat-"},
		},
		{
			ID:          "slack_token",
			Label:       "Slack Token",
			Pattern:     `\bxox[abprs]-[A-Za-z0-9-]{10,48}`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Denylist:    withPlaceholders(),
			Specificity: 0.85,
			Keywords:    []string{"xox"},
			Validator:   "slack_token",
		},
		{
			ID:          "slack_webhook",
			Label:       "Slack Webhook",
			Pattern:     `https://hooks\.slack\.com/services/[A-Z0-9]{9,}/[A-Z0-9]{9,}/[A-Za-z0-9]{24,}`,
			Severity:    types.SevHigh,
			Specificity: 0.95,
			Keywords:    []string{"hooks.slack.com"},
			Validator:   "slack_webhook",
		},
		{
			ID:          "discord_webhook",
			Label:       "Discord Webhook",
			Pattern:     `https://(?:ptb\.|canary\.)?discord(?:app)?\.com/api/webhooks/\d+/[A-Za-z0-9_-]+`,
			Severity:    types.SevMed,
			Specificity: 0.9,
			Keywords:    []string{"discord"},
			Validator:   "discord_webhook",
		},
		{
			ID:          "stripe_secret_key",
			Label:       "Stripe Secret Key",
			Pattern:     `\b(?:sk|rk)_live_[A-Za-z0-9]{24,}\b`,
			Severity:    types.SevCritical,
			MinEntropy:  3.0,
			Specificity: 0.95,
			Keywords:    []string{"_live_"},
			Validator:   "stripe_key",
		},
		{
			ID:          "stripe_webhook_secret",
			Label:       "Stripe Webhook Secret",
			Pattern:     `\bwhsec_[A-Za-z0-9]{16,}\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Specificity: 0.9,
			Keywords:    []string{"whsec_"},
		},
		{
			ID:          "openai_api_key",
			Label:       "OpenAI API Key",
			Pattern:     `\bsk-(?:(?:proj|svcacct|admin)-[A-Za-z0-9_-]{40,}|[A-Za-z0-9]{48})`,
			Severity:    types.SevHigh,
			MinEntropy:  3.5,
			Denylist:    withPlaceholders(),
			Specificity: 0.9,
			Keywords:    []string{"sk-"},
			Validator:   "openai_key",
		},
		{
			ID:          "anthropic_api_key",
			Label:       "Anthropic API Key",
			Pattern:     `\bsk-ant-[A-Za-z0-9_-]{30,}`,
			Severity:    types.SevHigh,
			MinEntropy:  3.5,
			Specificity: 0.95,
			Keywords:    []string{"sk-ant-"},
		},
		{
			ID:          "google_api_key",
			Label:       "Google API Key",
			Pattern:     `\bAIza[0-9A-Za-z_-]{35}`,
			Severity:    types.SevMed,
			MinEntropy:  3.0,
			Specificity: 0.85,
			Keywords:    []string{"aiza"},
		},
		{
			ID:          "sendgrid_api_key",
			Label:       "SendGrid API Key",
			Pattern:     `\bSG\.[A-Za-z0-9_-]{22}\.[A-Za-z0-9_-]{43}`,
			Severity:    types.SevHigh,
			MinEntropy:  3.5,
			Specificity: 0.95,
			Keywords:    []string{"sg."},
		},
		{
			ID:          "twilio_api_key",
			Label:       "Twilio API Key",
			Pattern:     `\bSK[0-9a-fA-F]{32}\b`,
			Severity:    types.SevMed,
			MinEntropy:  3.0,
			Specificity: 0.7,
		},
		{
			ID:          "npm_token",
			Label:       "npm Access Token",
			Pattern:     `\bnpm_[A-Za-z0-9]{36}\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Specificity: 0.95,
			Keywords:    []string{"npm_"},
		},
		{
			ID:          "pypi_token",
			Label:       "PyPI Upload Token",
			Pattern:     `\bpypi-AgEIcHlwaS5vcmc[A-Za-z0-9_-]{50,}`,
			Severity:    types.SevHigh,
			Specificity: 0.95,
			Keywords:    []string{"pypi-"},
		},
		{
			ID:          "huggingface_token",
			Label:       "Hugging Face Token",
			Pattern:     `\bhf_[A-Za-z0-9]{34,}\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Specificity: 0.9,
			Keywords:    []string{"hf_"},
		},
		{
			ID:          "databricks_token",
			Label:       "Databricks Token",
			Pattern:     `\bdapi[a-f0-9]{32}(?:-\d)?\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Specificity: 0.9,
			Keywords:    []string{"dapi"},
		},
		{
			ID:          "digitalocean_token",
			Label:       "DigitalOcean Token",
			Pattern:     `\bdo[por]_v1_[a-f0-9]{64}\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Specificity: 0.95,
			Keywords:    []string{"_v1_"},
		},
		{
			ID:          "shopify_token",
			Label:       "Shopify Access Token",
			Pattern:     `\bshp(?:at|ca|pa|ss)_[a-fA-F0-9]{32}\b`,
			Severity:    types.SevHigh,
			MinEntropy:  3.0,
			Specificity: 0.95,
			Keywords:    []string{"shp"},
		},
		{
			ID:          "mailgun_api_key",
			Label:       "Mailgun API Key",
			Pattern:     `\bkey-[0-9a-f]{32}\b`,
			Severity:    types.SevMed,
			MinEntropy:  3.0,
			Specificity: 0.8,
			Keywords:    []string{"key-"},
		},
		{
			ID:          "telegram_bot_token",
			Label:       "Telegram Bot Token",
			Pattern:     `\b\d{8,10}:AA[A-Za-z0-9_-]{33}`,
			Severity:    types.SevMed,
			MinEntropy:  3.0,
			Specificity: 0.85,
			Keywords:    []string{":aa"},
		},
		{
			ID:          "terraform_cloud_token",
			Label:       "Terraform Cloud Token",
			Pattern:     `\b[A-Za-z0-9]{14}\.atlasv1\.[A-Za-z0-9_-]{60,70}`,
			Severity:    types.SevHigh,
			Specificity: 0.95,
			Keywords:    []string{"atlasv1"},
		},
		{
			ID:          "azure_storage_key",
			Label:       "Azure Storage Account Key",
			Pattern:     `(?i)AccountKey=([A-Za-z0-9+/=]{86,88})`,
			Severity:    types.SevCritical,
			MinEntropy:  4.0,
			Specificity: 0.9,
			SecretGroup: 1,
			Keywords:    []string{"accountkey="},
		},
		{
			ID:          "heroku_api_key",
			Label:       "Heroku API Key",
			Pattern:     `(?i)heroku[\w-]*["'\s]*[:=]\s*["']?([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`,
			Severity:    types.SevHigh,
			Specificity: 0.8,
			SecretGroup: 1,
			Keywords:    []string{"heroku"},
		},
		{
			ID:          "sentry_dsn",
			Label:       "Sentry DSN",
			Pattern:     `https://[0-9a-f]{32}@[A-Za-z0-9.-]*sentry\.io/\d+`,
			Severity:    types.SevLow,
			Specificity: 0.8,
			Keywords:    []string{"sentry.io"},
		},
		{
			ID:          "private_key",
			Label:       "Private Key Block",
			Pattern:     `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY(?: BLOCK)?-----`,
			Severity:    types.SevCritical,
			Specificity: 0.95,
			Keywords:    []string{"private key"},
		},
		{
			ID:          "jwt",
			Label:       "JSON Web Token",
			Pattern:     `\beyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}`,
			Severity:    types.SevMed,
			MinEntropy:  3.0,
			Specificity: 0.75,
			Keywords:    []string{"eyj"},
			Validator:   "jwt",
		},
		{
			ID:          "db_uri_credentials",
			Label:       "Database URI with Credentials",
			Pattern:     `\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|rediss?|amqps?|sqlserver)://[^\s:@/]*:([^\s@/]+)@[^\s/]+`,
			Severity:    types.SevHigh,
			MinEntropy:  2.5,
			Denylist:    withPlaceholders("password", "pass@", "secret@"),
			Specificity: 0.85,
			SecretGroup: 1,
			Keywords:    []string{"://"},
		},
		{
			ID:          "url_credentials",
			Label:       "Credentials in URL",
			Pattern:     `\bhttps?://[^\s:/@]+:([^\s@/]+)@[^\s/]+`,
			Severity:    types.SevMed,
			MinEntropy:  2.5,
			Denylist:    withPlaceholders("password"),
			Specificity: 0.6,
			SecretGroup: 1,
			Keywords:    []string{"http"},
		},
		{
			ID:          "password_assignment",
			Label:       "Password",
			Pattern:     `(?i)\b(?:password|passwd|pwd)\b["']?\s*[:=]\s*["']?([^\s"'` + "`" + `;,]{4,})`,
			Severity:    types.SevMed,
			MinEntropy:  3.0,
			Denylist:    withPlaceholders(),
			Specificity: 0.4,
			SecretGroup: 1,
			Keywords:    []string{"pass", "pwd"},
		},
		{
			ID:          "generic_secret_assignment",
			Label:       "Generic Secret",
			Pattern:     `(?i)\b(?:api[_-]?key|apikey|secret|token|access[_-]?key|client[_-]?secret|auth[_-]?token)\w*["']?\s*[:=]\s*["']?([A-Za-z0-9/+=_.-]{16,})`,
			Severity:    types.SevMed,
			MinEntropy:  3.5,
			Denylist:    withPlaceholders(),
			Specificity: 0.5,
			SecretGroup: 1,
			Keywords:    []string{"api", "key", "secret", "token"},
		},
		{
			ID:          "generic_token",
			Label:       "Generic Token",
			Pattern:     `\b[A-Za-z0-9_-]{32,}`,
			Severity:    types.SevLow,
			MinEntropy:  4.5,
			Denylist:    withPlaceholders(),
			Specificity: 0.2,
		},
	}
}

package config

import (
	"fmt"
	"strings"
)

const (
	DefaultWebRoot = "https://app.cocos.capital"
	DefaultAPIRoot = "https://api.cocos.capital/api"
)

// Page is a navigable page of the web application.
type Page int

const (
	PageDashboard Page = iota
	PageLogin
	PagePortfolio
	PageOrders
	PageMovements
	PageMarketStocks
	PageMarketCedears
	PageMarketBondsCorp
	PageMarketBondsPublic
	PageMarketLetters
	PageMarketCaucion
	PageMarketFCI
	PageMarketFavorites
	numPages
)

var pageNames = [numPages]string{
	PageDashboard:         "dashboard",
	PageLogin:             "login",
	PagePortfolio:         "portfolio",
	PageOrders:            "orders",
	PageMovements:         "movements",
	PageMarketStocks:      "market_stocks",
	PageMarketCedears:     "market_cedears",
	PageMarketBondsCorp:   "market_bonds_corp",
	PageMarketBondsPublic: "market_bonds_public",
	PageMarketLetters:     "market_letters",
	PageMarketCaucion:     "market_caucion",
	PageMarketFCI:         "market_fci",
	PageMarketFavorites:   "market_favorites",
}

var defaultPagePaths = [numPages]string{
	PageDashboard:         "/",
	PageLogin:             "/login",
	PagePortfolio:         "/capital-portfolio",
	PageOrders:            "/orders",
	PageMovements:         "/movements",
	PageMarketStocks:      "/market/acciones",
	PageMarketCedears:     "/market/cedears",
	PageMarketBondsCorp:   "/market/obligaciones-negociables",
	PageMarketBondsPublic: "/market/bonos-publicos",
	PageMarketLetters:     "/market/letras",
	PageMarketCaucion:     "/market/caucion",
	PageMarketFCI:         "/market/fci",
	PageMarketFavorites:   "/market/favoritos",
}

func (p Page) String() string {
	if p < 0 || p >= numPages {
		return fmt.Sprintf("Page(%d)", int(p))
	}
	return pageNames[p]
}

// Endpoint is a backend API endpoint the web application calls.
type Endpoint int

const (
	EndpointAuthToken Endpoint = iota
	EndpointAccountTier
	EndpointAcademy
	EndpointMarketsSchedule
	EndpointMarketsTickers
	EndpointMEPPrices
	EndpointOrders
	EndpointPortfolioData
	EndpointPortfolioBalance
	EndpointUserAccounts
	EndpointUserData
	numEndpoints
)

var endpointNames = [numEndpoints]string{
	EndpointAuthToken:        "auth_token",
	EndpointAccountTier:      "account_tier",
	EndpointAcademy:          "academy",
	EndpointMarketsSchedule:  "markets_schedule",
	EndpointMarketsTickers:   "markets_tickers",
	EndpointMEPPrices:        "mep_prices",
	EndpointOrders:           "orders",
	EndpointPortfolioData:    "portfolio_data",
	EndpointPortfolioBalance: "portfolio_balance",
	EndpointUserAccounts:     "user_accounts",
	EndpointUserData:         "user_data",
}

var defaultEndpointPaths = [numEndpoints]string{
	EndpointAuthToken:        "/auth/v1/token?grant_type=password",
	EndpointAccountTier:      "/v1/users/account-tier",
	EndpointAcademy:          "/v1/home/academy",
	EndpointMarketsSchedule:  "/v1/markets/schedule",
	EndpointMarketsTickers:   "/v1/markets/tickers",
	EndpointMEPPrices:        "/v1/public/mep-prices",
	EndpointOrders:           "/v2/orders",
	EndpointPortfolioData:    "/v1/wallet/portfolio?currency=ARS&from=BROKER",
	EndpointPortfolioBalance: "/v1/wallet/portfolio/balance?currency=ARS&period=MAX",
	EndpointUserAccounts:     "/v1/transfers/accounts?currency=",
	EndpointUserData:         "/v1/users/me",
}

func (e Endpoint) String() string {
	if e < 0 || e >= numEndpoints {
		return fmt.Sprintf("Endpoint(%d)", int(e))
	}
	return endpointNames[e]
}

// URLTable resolves pages and endpoints to absolute URLs. It is a value
// type; overrides return a new table.
type URLTable struct {
	webRoot   string
	apiRoot   string
	pages     [numPages]string
	endpoints [numEndpoints]string
}

// DefaultURLs returns the production URL table.
func DefaultURLs() URLTable {
	return URLTable{
		webRoot:   DefaultWebRoot,
		apiRoot:   DefaultAPIRoot,
		pages:     defaultPagePaths,
		endpoints: defaultEndpointPaths,
	}
}

// Page returns the absolute URL of p.
func (t URLTable) Page(p Page) string {
	return join(t.webRoot, t.pages[p])
}

// Endpoint returns the absolute URL of e. Responses are matched against it
// as a substring, so it may end in a partial query string.
func (t URLTable) Endpoint(e Endpoint) string {
	return join(t.apiRoot, t.endpoints[e])
}

// APIRoot returns the backend root, used to build parameterized endpoints.
func (t URLTable) APIRoot() string {
	return t.apiRoot
}

// URLOverrides replaces roots and paths by name.
type URLOverrides struct {
	WebRoot   string            `yaml:"webRoot"`
	APIRoot   string            `yaml:"apiRoot"`
	Pages     map[string]string `yaml:"pages"`
	Endpoints map[string]string `yaml:"endpoints"`
}

// With returns a copy of t with o applied. Unknown names are rejected.
func (t URLTable) With(o URLOverrides) (URLTable, error) {
	if o.WebRoot != "" {
		t.webRoot = strings.TrimRight(o.WebRoot, "/")
	}
	if o.APIRoot != "" {
		t.apiRoot = strings.TrimRight(o.APIRoot, "/")
	}
	for name, path := range o.Pages {
		i := indexOf(pageNames[:], name)
		if i < 0 {
			return t, fmt.Errorf("unknown page %q", name)
		}
		t.pages[i] = path
	}
	for name, path := range o.Endpoints {
		i := indexOf(endpointNames[:], name)
		if i < 0 {
			return t, fmt.Errorf("unknown endpoint %q", name)
		}
		t.endpoints[i] = path
	}
	return t, nil
}

func join(root, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" || path == "/" {
		return root + "/"
	}
	return root + "/" + strings.TrimLeft(path, "/")
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

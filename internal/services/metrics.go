package services

import "github.com/prometheus/client_golang/prometheus"

var (
	listingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_listings_created_total",
			Help: "Listings created, by category.",
		},
		[]string{"category"},
	)

	listingsSold = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_listings_sold_total",
			Help: "Successful sold transitions (including repeats).",
		},
	)

	listingsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_listings_deleted_total",
			Help: "Listings permanently deleted.",
		},
	)

	// secretRejections counts wrong secret keys by operation (mark_sold, delete).
	secretRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_secret_rejections_total",
			Help: "Requests rejected because the secret key did not match.",
		},
		[]string{"op"},
	)

	cartItemsAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_cart_items_added_total",
			Help: "Cart additions applied (replays excluded).",
		},
	)

	degradedReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_degraded_reads_total",
			Help: "Reads answered empty/not-found because the store failed.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(listingsCreated, listingsSold, listingsDeleted, secretRejections, cartItemsAdded, degradedReads)
}

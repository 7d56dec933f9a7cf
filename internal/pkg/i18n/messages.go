package i18n

var dictionaries = map[string]map[string]string{
	"en": {
		"services.serviceCenter":        "Service Centers",
		"services.carWash":              "Car Wash",
		"services.gasStation":           "Gas Stations",
		"tracking.started.title":        "Tracking Started",
		"tracking.started.body":         "Recording your mileage...",
		"tracking.saved.title":          "Trip Saved",
		"tracking.saved.body":           "Distance: %.2f km",
		"tracking.archived.body":        "Distance: %.2f km. Total mileage: %.1f km",
		"tracking.stopped.title":        "Tracking Stopped",
		"tracking.stopped.body":         "No movement was recorded",
		"tracking.historyCleared.title": "History Cleared",
		"tracking.historyCleared.body":  "All trip data has been reset",
		"tracking.sampleError.title":    "Location Error",
		"tracking.sampleError.body":     "A position update failed: %s",
		"location.denied.title":         "Permission Denied",
		"location.denied.body":          "Location access is required for this feature.",
		"location.timeout.title":        "Location Timeout",
		"location.timeout.body":         "Could not get a GPS fix. Please try again.",
		"location.unavailable.title":    "Location Unavailable",
		"location.unavailable.body":     "Location services are not available on this device.",
		"search.found.title":            "Location Found",
		"search.found.body":             "Showing %d nearby places",
		"search.none.title":             "No Results",
		"search.none.body":              "No places found within %.0f km",
		"search.failed.title":           "Search Failed",
		"search.failed.body":            "Could not search for nearby places",
		"route.found.title":             "Route Ready",
		"route.found.body":              "%.1f km, about %.0f min",
		"route.none.title":              "No Route",
		"route.none.body":               "No driving route found to %s",
		"route.failed.title":            "Directions Failed",
		"route.failed.body":             "Could not load directions",
		"map.unauthorized.title":        "Error",
		"map.unauthorized.body":         "Failed to load map configuration",
		"push.denied.title":             "Permission Denied",
		"push.denied.body":              "Please enable notifications in your device settings.",
		"push.registered.title":         "Notifications Enabled",
		"push.registered.body":          "You'll now receive alerts about your vehicle.",
		"push.failed.title":             "Registration Failed",
		"push.failed.body":              "Could not register for push notifications.",
		"push.received.title":           "New Notification",
	},
	"es": {
		"services.serviceCenter":        "Talleres",
		"services.carWash":              "Lavado de coches",
		"services.gasStation":           "Gasolineras",
		"tracking.started.title":        "Seguimiento iniciado",
		"tracking.started.body":         "Registrando tu kilometraje...",
		"tracking.saved.title":          "Viaje guardado",
		"tracking.saved.body":           "Distancia: %.2f km",
		"tracking.archived.body":        "Distancia: %.2f km. Kilometraje total: %.1f km",
		"tracking.stopped.title":        "Seguimiento detenido",
		"tracking.stopped.body":         "No se registró movimiento",
		"tracking.historyCleared.title": "Historial borrado",
		"tracking.historyCleared.body":  "Se han eliminado todos los viajes",
		"location.denied.title":         "Permiso denegado",
		"location.denied.body":          "Se necesita acceso a la ubicación.",
		"location.timeout.title":        "Tiempo agotado",
		"location.timeout.body":         "No se pudo obtener la posición GPS. Inténtalo de nuevo.",
		"search.found.title":            "Ubicación encontrada",
		"search.found.body":             "Mostrando %d lugares cercanos",
		"search.none.title":             "Sin resultados",
		"search.failed.title":           "Búsqueda fallida",
		"search.failed.body":            "No se pudieron buscar lugares cercanos",
		"route.found.title":             "Ruta lista",
		"route.found.body":              "%.1f km, unos %.0f min",
		"route.none.title":              "Sin ruta",
		"route.none.body":               "No hay ruta en coche hasta %s",
		"push.registered.title":         "Notificaciones activadas",
		"push.received.title":           "Nueva notificación",
	},
	"fr": {
		"services.serviceCenter":        "Garages",
		"services.carWash":              "Lavage auto",
		"services.gasStation":           "Stations-service",
		"tracking.started.title":        "Suivi démarré",
		"tracking.started.body":         "Enregistrement de votre kilométrage...",
		"tracking.saved.title":          "Trajet enregistré",
		"tracking.saved.body":           "Distance : %.2f km",
		"tracking.historyCleared.title": "Historique effacé",
		"location.denied.title":         "Permission refusée",
		"search.found.title":            "Position trouvée",
		"search.found.body":             "%d lieux à proximité",
		"search.failed.title":           "Échec de la recherche",
		"route.found.title":             "Itinéraire prêt",
		"route.none.title":              "Aucun itinéraire",
	},
	"de": {
		"services.serviceCenter":        "Werkstätten",
		"services.carWash":              "Autowäsche",
		"services.gasStation":           "Tankstellen",
		"tracking.started.title":        "Aufzeichnung gestartet",
		"tracking.started.body":         "Ihre Kilometer werden aufgezeichnet...",
		"tracking.saved.title":          "Fahrt gespeichert",
		"tracking.saved.body":           "Strecke: %.2f km",
		"tracking.historyCleared.title": "Verlauf gelöscht",
		"location.denied.title":         "Berechtigung verweigert",
		"search.found.title":            "Standort gefunden",
		"search.found.body":             "%d Orte in der Nähe",
		"search.failed.title":           "Suche fehlgeschlagen",
		"route.found.title":             "Route bereit",
		"route.none.title":              "Keine Route",
	},
	"pt": {
		"services.serviceCenter":        "Oficinas",
		"services.carWash":              "Lava-rápido",
		"services.gasStation":           "Postos de combustível",
		"tracking.started.title":        "Rastreamento iniciado",
		"tracking.started.body":         "Registrando sua quilometragem...",
		"tracking.saved.title":          "Viagem salva",
		"tracking.saved.body":           "Distância: %.2f km",
		"tracking.historyCleared.title": "Histórico apagado",
		"location.denied.title":         "Permissão negada",
		"search.found.title":            "Localização encontrada",
		"search.found.body":             "Mostrando %d locais próximos",
		"search.failed.title":           "Falha na busca",
		"route.found.title":             "Rota pronta",
		"route.none.title":              "Sem rota",
	},
}

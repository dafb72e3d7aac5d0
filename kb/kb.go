// Package kb supplies the domain documents the context retriever indexes:
// built-in agronomy reference snippets, optionally extended from a Firestore
// collection when credentials are configured.
package kb

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Document is one reference text for retrieval.
type Document struct {
	ID    string `firestore:"-"`
	Title string `firestore:"title"`
	Text  string `firestore:"text"`
}

// FirestoreClient is a singleton Firestore client instance.
var (
	client     *firestore.Client
	clientOnce sync.Once
	clientErr  error
)

// InitFirestore initializes and returns a Firestore client from the base64
// encoded service account JSON in encodedCreds.
func InitFirestore(ctx context.Context, encodedCreds string) (*firestore.Client, error) {
	clientOnce.Do(func() {
		creds, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			clientErr = fmt.Errorf("decoding Firestore credentials: %w", err)
			return
		}

		opt := option.WithCredentialsJSON(creds)
		app, err := firebase.NewApp(ctx, nil, opt)
		if err != nil {
			clientErr = fmt.Errorf("initializing Firebase app: %w", err)
			return
		}

		client, clientErr = app.Firestore(ctx)
	})

	return client, clientErr
}

// CloseFirestore closes the Firestore client.
func CloseFirestore() {
	if client != nil {
		client.Close()
	}
}

// LoadDocuments reads every document from the knowledge-base collection.
func LoadDocuments(ctx context.Context, fs *firestore.Client, collection string) ([]Document, error) {
	var docs []Document

	iter := fs.Collection(collection).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading collection %s: %w", collection, err)
		}

		var doc Document
		if err := snap.DataTo(&doc); err != nil {
			log.Printf("Warning: skipping malformed knowledge document %s: %v", snap.Ref.ID, err)
			continue
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, doc)
	}

	return docs, nil
}

// DefaultDocuments returns the embedded agronomy reference snippets used when
// no external knowledge base is configured.
func DefaultDocuments() []Document {
	return []Document{
		{
			ID:    "riego-deficit",
			Title: "Riego por déficit",
			Text:  "En campañas con precipitación anual por debajo de 500 mm conviene programar riegos por demanda, priorizando sistemas de goteo o aspersión de baja intensidad y ajustando las láminas según el déficit contra el promedio histórico de la zona.",
		},
		{
			ID:    "drenaje-excesos",
			Title: "Drenaje y excesos hídricos",
			Text:  "Cuando la precipitación anual supera los 1500 mm es clave reforzar drenajes, nivelar lotes propensos a anegamiento y ajustar fechas de siembra para evitar los picos de lluvia estacionales.",
		},
		{
			ID:    "monitoreo-suelo",
			Title: "Monitoreo de humedad de suelo",
			Text:  "El monitoreo semanal de humedad de suelo con sondas o calicatas permite anticipar estrés hídrico y decidir riegos de complemento antes de que el cultivo exprese síntomas visibles.",
		},
		{
			ID:    "variabilidad-planificacion",
			Title: "Planificación ante alta variabilidad",
			Text:  "Con coeficientes de variación de lluvia superiores a 0.5 se recomienda diversificar fechas de siembra, reservar capacidad de riego para los meses críticos y contratar cobertura climática cuando esté disponible.",
		},
		{
			ID:    "sanidad-humedad",
			Title: "Riesgo sanitario por humedad",
			Text:  "Períodos prolongados de humedad relativa alta favorecen enfermedades fúngicas; en esos escenarios conviene intensificar el monitoreo sanitario y planificar aplicaciones preventivas en los estadios susceptibles.",
		},
		{
			ID:    "amplitud-termica",
			Title: "Amplitud térmica y heladas",
			Text:  "Una amplitud térmica amplia con mínimas cercanas a cero exige vigilar heladas tardías: atrasar siembras sensibles y disponer de riego por aspersión como defensa activa reduce el daño.",
		},
	}
}
